package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/daviddao/lanchat/internal/lan"
)

var errEmptyName = errors.New("name cannot be empty")

// promptName asks for a display name. A terminal gets an interactive form;
// anything else is read as a single line.
func promptName(in io.Reader, out io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		var name string
		err := huh.NewInput().
			Title("Enter your name").
			CharLimit(lan.MaxNameLen).
			Value(&name).
			Validate(validateName).
			Run()
		if err != nil {
			return "", fmt.Errorf("name prompt: %w", err)
		}
		return lan.SanitizeName(name), nil
	}
	return readName(in, out)
}

func readName(in io.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, "Enter your name: ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read name: %w", err)
	}
	name := lan.SanitizeName(line)
	if name == "" {
		return "", errEmptyName
	}
	return name, nil
}

func validateName(s string) error {
	if lan.SanitizeName(s) == "" {
		return errEmptyName
	}
	return nil
}
