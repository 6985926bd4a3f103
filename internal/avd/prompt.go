// Copyright (C) 2025 Forkbomb B.V.
// License: AGPL-3.0-only

package avd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Prompter supplies answers to interactive questions.
type Prompter interface {
	// Prompt shows label and returns the trimmed answer. io.EOF means no more input.
	Prompt(label string) (string, error)
}

// LinePrompter reads one line per answer.
type LinePrompter struct {
	r *bufio.Reader
	w io.Writer
}

func NewLinePrompter(r io.Reader, w io.Writer) *LinePrompter {
	return &LinePrompter{r: bufio.NewReader(r), w: w}
}

func (p *LinePrompter) Prompt(label string) (string, error) {
	fmt.Fprint(p.w, label)
	line, err := p.r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
