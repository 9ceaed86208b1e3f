package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/term"
)

// promptLine asks for one line of input.
func (a *app) promptLine(label string) (string, error) {
	fmt.Fprint(a.errOut, label)
	line, err := a.reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("lendo entrada: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// promptPassword reads a password without echo when stdin is a terminal,
// or the first line of stdin otherwise.
func (a *app) promptPassword() (string, error) {
	fd := int(a.in.Fd())
	if !term.IsTerminal(fd) {
		line, err := a.reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("lendo senha: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(a.errOut, "Senha: ")
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(a.errOut)
	if err != nil {
		return "", fmt.Errorf("lendo senha: %w", err)
	}
	return string(password), nil
}
