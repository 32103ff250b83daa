package adapter

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"

	"github.com/gillepool/interactivity/internal/bus"
	"github.com/gillepool/interactivity/internal/events"
)

// CLIAdapter is a chat adapter for local development: every line read from
// stdin becomes a message-created event and every outbound command is
// printed to stdout. Reactions cannot be typed on a terminal, so reaction
// commands only print what they would have done; waits on reactions simply
// expire at their deadline.
type CLIAdapter struct {
	Input   io.ReadCloser
	Output  io.Writer
	Author  string // author of typed messages, defaults to os.Getenv("USER")
	Channel string // channel all typed messages are attributed to

	mu      sync.Mutex // protects the Output and closing channel
	nextID  int
	closing chan chan error
}

// NewCLIAdapter creates a new CLIAdapter. The caller must call Close to make
// the CLIAdapter stop reading messages and emitting events.
func NewCLIAdapter() *CLIAdapter {
	return &CLIAdapter{
		Input:   os.Stdin,
		Output:  os.Stdout,
		Author:  os.Getenv("USER"),
		Channel: "cli",
		closing: make(chan chan error),
	}
}

// RegisterAt starts the CLIAdapter by reading lines from stdin and
// publishing a MessageCreatedEvent for each of them.
func (a *CLIAdapter) RegisterAt(b *bus.Bus) {
	go a.loop(b)
}

func (a *CLIAdapter) loop(b *bus.Bus) {
	lines := a.readLines()

	// The adapter loop stays responsive even if the Bus stops draining so
	// the CLIAdapter can always be closed.
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				lines = nil // no more input, wait for the closing signal
				continue
			}

			b.Publish(events.MessageCreatedEvent{
				ID:       a.newMessageID(),
				Text:     line,
				AuthorID: a.Author,
				Channel:  a.Channel,
			})

		case result := <-a.closing:
			result <- a.Input.Close()
			return
		}
	}
}

// readLines reads lines from stdin and returns them in a channel. All
// strings in the returned channel exclude the trailing newline. The channel
// is closed automatically when a.Input is closed.
func (a *CLIAdapter) readLines() <-chan string {
	r := bufio.NewReader(a.Input)
	lines := make(chan string)
	go func() {
		// This goroutine exits when a.Input.Close() makes ReadString return
		// an io.EOF.
		for {
			line, err := r.ReadString('\n')
			switch {
			case err == io.EOF:
				close(lines)
				return
			case err != nil:
				return
			}

			lines <- line[:len(line)-1]
		}
	}()

	return lines
}

func (a *CLIAdapter) newMessageID() string {
	a.mu.Lock()
	a.nextID++
	id := a.nextID
	a.mu.Unlock()
	return strconv.Itoa(id)
}

// SendMessage prints the text to stdout and returns a synthetic message ID.
func (a *CLIAdapter) SendMessage(_, text string) (string, error) {
	return a.newMessageID(), a.print(text + "\n")
}

func (a *CLIAdapter) EditMessage(_, messageID, text string) error {
	return a.print(fmt.Sprintf("[edit %s] %s\n", messageID, text))
}

func (a *CLIAdapter) AddReaction(_, messageID, emoji string) error {
	return a.print(fmt.Sprintf("[react %s] %s\n", messageID, emoji))
}

func (a *CLIAdapter) RemoveReaction(_, messageID, emoji, _ string) error {
	return a.print(fmt.Sprintf("[unreact %s] %s\n", messageID, emoji))
}

func (a *CLIAdapter) RemoveAllReactions(_, messageID string) error {
	return a.print(fmt.Sprintf("[unreact-all %s]\n", messageID))
}

func (a *CLIAdapter) DeleteMessage(_, messageID string) error {
	return a.print(fmt.Sprintf("[delete %s]\n", messageID))
}

// Close makes the CLIAdapter stop emitting any new events or printing any
// output. Calling this function more than once will result in an error.
func (a *CLIAdapter) Close() error {
	if a.closing == nil {
		return errors.New("already closed")
	}

	callback := make(chan error)
	a.closing <- callback
	err := <-callback

	// Mark the CLIAdapter as closed by setting its closing channel to nil.
	// This prevents any more output from being printed after this function
	// returns.
	a.mu.Lock()
	a.closing = nil
	a.mu.Unlock()

	return err
}

func (a *CLIAdapter) print(msg string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closing == nil {
		return errors.New("adapter is closed")
	}
	_, err := fmt.Fprint(a.Output, msg)
	return err
}
