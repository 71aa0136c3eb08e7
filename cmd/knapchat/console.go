package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/TheusHen/knapchat/knapchat/identity"
)

// terminal is a session.Console on a line reader. One goroutine owns the
// reader so a cancelled prompt does not lose the next line.
type terminal struct {
	out   io.Writer
	lines chan string
	err   error
}

func newTerminal(in io.Reader, out io.Writer) *terminal {
	t := &terminal{out: out, lines: make(chan string)}
	go func() {
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			t.lines <- sc.Text()
		}
		t.err = sc.Err()
		close(t.lines)
	}()
	return t
}

func (t *terminal) readLine(ctx context.Context, prompt string) (string, error) {
	fmt.Fprint(t.out, prompt)
	select {
	case line, ok := <-t.lines:
		if !ok {
			if t.err != nil {
				return "", t.err
			}
			return "", io.EOF
		}
		return line, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// ReadPeerID prompts until it reads something that parses as a client id.
func (t *terminal) ReadPeerID(ctx context.Context) (identity.ClientID, error) {
	for {
		line, err := t.readLine(ctx, "> Enter the port (client_id) of the peer: ")
		if err != nil {
			return 0, err
		}
		id, err := identity.ParseClientID(strings.TrimSpace(line))
		if err == nil {
			return id, nil
		}
		fmt.Fprintln(t.out, err)
	}
}

func (t *terminal) ReadLine(ctx context.Context) (string, error) {
	return t.readLine(ctx, ">  You: ")
}

func (t *terminal) Show(text string) {
	fmt.Fprintf(t.out, "> Peer: %s\n", text)
}
