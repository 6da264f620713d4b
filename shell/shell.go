// Package shell implements the interactive menu of the simulator.
package shell

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sarchlab/pagesim/mem/paging"
)

// Limits of the startup configuration.
const (
	MaxPageSize   = 1024 * 1024
	MaxFrameCount = 1000
)

// A Shell reads commands from an input and writes the reports to an output.
type Shell struct {
	in  *bufio.Scanner
	out io.Writer
}

// New creates a shell.
func New(in io.Reader, out io.Writer) *Shell {
	return &Shell{
		in:  bufio.NewScanner(in),
		out: out,
	}
}

// Banner prints the title of the program.
func (s *Shell) Banner() {
	fmt.Fprintln(s.out, "=== Paged Memory Allocation Simulator ===")
}

// AskConfig prompts for the page size and the frame count. A value that is
// already in range is used without asking. It returns io.EOF if the input
// ends first.
func (s *Shell) AskConfig(pageSize, frameCount int) (int, int, error) {
	var err error

	if !inRange(pageSize, 1, MaxPageSize) {
		pageSize, err = s.askInRange(
			"Enter page size (bytes): ", 1, MaxPageSize, "Page size")
		if err != nil {
			return 0, 0, err
		}
	}

	if !inRange(frameCount, 1, MaxFrameCount) {
		frameCount, err = s.askInRange(
			"Enter total number of page frames: ", 1, MaxFrameCount,
			"Frame count")
		if err != nil {
			return 0, 0, err
		}
	}

	return pageSize, frameCount, nil
}

// Run shows the menu until the user exits or the input ends.
func (s *Shell) Run(manager paging.Manager) error {
	for {
		s.printMenu()

		line, err := s.readLine()
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(s.out, "\nExiting...")
			return nil
		}

		if err != nil {
			return err
		}

		done, err := s.dispatch(manager, strings.TrimSpace(line))
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(s.out, "\nExiting...")
			return nil
		}

		if err != nil {
			return err
		}

		if done {
			return nil
		}
	}
}

func (s *Shell) printMenu() {
	fmt.Fprintln(s.out, "\n=== Menu ===")
	fmt.Fprintln(s.out, "1. Accept a job")
	fmt.Fprintln(s.out, "2. Resolve address")
	fmt.Fprintln(s.out, "3. Display memory state")
	fmt.Fprintln(s.out, "4. Remove a job")
	fmt.Fprintln(s.out, "5. Exit")
	fmt.Fprint(s.out, "Enter your choice: ")
}

func (s *Shell) dispatch(manager paging.Manager, choice string) (bool, error) {
	switch choice {
	case "1":
		return false, s.acceptJob(manager)
	case "2":
		return false, s.resolveAddress(manager)
	case "3":
		PrintState(s.out, manager.ReportState())
		return false, nil
	case "4":
		return false, s.removeJob(manager)
	case "5":
		fmt.Fprintln(s.out, "Exiting...")
		return true, nil
	default:
		fmt.Fprintln(s.out, "Invalid choice. Please try again.")
		return false, nil
	}
}

func (s *Shell) acceptJob(manager paging.Manager) error {
	name, err := s.askName("Enter job name: ")
	if err != nil {
		return err
	}

	size, err := s.askInt("Enter job size (bytes): ")
	if err != nil {
		return err
	}

	admission, err := manager.AdmitJob(name, size)
	if err != nil {
		PrintError(s.out, err)
		return nil
	}

	PrintAdmission(s.out, admission)

	return nil
}

func (s *Shell) resolveAddress(manager paging.Manager) error {
	jobID, err := s.askInt("Enter job ID: ")
	if err != nil {
		return err
	}

	addr, err := s.askInt("Enter logical address: ")
	if err != nil {
		return err
	}

	translation, err := manager.TranslateAddress(paging.JobID(jobID), addr)
	if err != nil {
		PrintError(s.out, err)
		return nil
	}

	PrintTranslation(s.out, translation)

	return nil
}

func (s *Shell) removeJob(manager paging.Manager) error {
	jobID, err := s.askInt("Enter job ID to remove: ")
	if err != nil {
		return err
	}

	removal, err := manager.RemoveJob(paging.JobID(jobID))
	if err != nil {
		PrintError(s.out, err)
		return nil
	}

	PrintRemoval(s.out, removal)

	return nil
}

func (s *Shell) readLine() (string, error) {
	if !s.in.Scan() {
		if err := s.in.Err(); err != nil {
			return "", err
		}

		return "", io.EOF
	}

	return s.in.Text(), nil
}

func (s *Shell) askName(prompt string) (string, error) {
	for {
		fmt.Fprint(s.out, prompt)

		line, err := s.readLine()
		if err != nil {
			return "", err
		}

		if strings.TrimSpace(line) != "" {
			return line, nil
		}

		fmt.Fprintln(s.out, "Job name must not be blank. Please try again.")
	}
}

func (s *Shell) askInt(prompt string) (int, error) {
	for {
		fmt.Fprint(s.out, prompt)

		line, err := s.readLine()
		if err != nil {
			return 0, err
		}

		v, err := strconv.Atoi(strings.TrimSpace(line))
		if err == nil {
			return v, nil
		}

		fmt.Fprintln(s.out, "Invalid number. Please try again.")
	}
}

func (s *Shell) askInRange(prompt string, lo, hi int, what string) (int, error) {
	for {
		v, err := s.askInt(prompt)
		if err != nil {
			return 0, err
		}

		if inRange(v, lo, hi) {
			return v, nil
		}

		fmt.Fprintf(s.out, "%s must be between %d and %d. Please try again.\n",
			what, lo, hi)
	}
}

func inRange(v, lo, hi int) bool {
	return v >= lo && v <= hi
}
