package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/taskpilot/internal/channel"
	"github.com/dohr-michael/taskpilot/internal/chat"
	"github.com/dohr-michael/taskpilot/internal/coordinator"
)

// NewAskCommand returns the ask subcommand.
func NewAskCommand() *cli.Command {
	return &cli.Command{
		Name:      "ask",
		Usage:     "Send one message to the agent and print the reply",
		ArgsUsage: "<message>",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Give up after this long",
				Value: 60 * time.Second,
			},
			&cli.DurationFlag{
				Name:  "settle",
				Usage: "Quiet period to wait for the agent greeting before sending",
				Value: 300 * time.Millisecond,
			},
		},
		Action: runAsk,
	}
}

func runAsk(ctx context.Context, cmd *cli.Command) error {
	question := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if question == "" {
		return fmt.Errorf("usage: taskpilot ask <message>")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := setupLogging(cmd, cfg, os.Stderr)
	flush := startTelemetry(cfg, log)
	defer flush()

	ctx, cancel := context.WithTimeout(ctx, cmd.Duration("timeout"))
	defer cancel()

	sess, err := newSession(cfg, log)
	if err != nil {
		return err
	}
	defer sess.Close()

	if err := sess.Start(ctx); err != nil {
		return err
	}
	return ask(ctx, sess, question, cmd.Duration("settle"), os.Stdout)
}

// askSession is the part of the coordinator a one-shot question needs.
type askSession interface {
	State() coordinator.State
	Submit(text string) error
	Changed() <-chan struct{}
}

// ask waits for the channel to open, lets the greeting settle, sends question
// and prints the agent messages of that turn.
func ask(ctx context.Context, sess askSession, question string, settle time.Duration, out io.Writer) error {
	_, err := waitState(ctx, sess, func(s coordinator.State) (bool, error) {
		switch s.Connection {
		case channel.StatusOpen:
			return true, nil
		case channel.StatusClosed:
			return false, closedError("connect to agent", s)
		}
		return false, nil
	})
	if err != nil {
		return err
	}

	start, err := settleTranscript(ctx, sess, settle)
	if err != nil {
		return err
	}

	if err := sess.Submit(question); err != nil {
		return fmt.Errorf("send message: %w", err)
	}

	final, err := waitState(ctx, sess, func(s coordinator.State) (bool, error) {
		if !s.Composing {
			return true, nil
		}
		if s.Connection == channel.StatusClosed {
			return false, closedError("agent disconnected before replying", s)
		}
		return false, nil
	})
	if err != nil {
		return err
	}

	for _, m := range final.Messages[start:] {
		if m.Role == chat.RoleAgent {
			fmt.Fprintln(out, m.Content)
		}
	}
	return nil
}

func closedError(what string, s coordinator.State) error {
	if s.ConnError != "" {
		return fmt.Errorf("%s: %s", what, s.ConnError)
	}
	return fmt.Errorf("%s: %w", what, coordinator.ErrNotConnected)
}

// waitState re-checks cond on every state change until it reports done or
// fails.
func waitState(ctx context.Context, sess askSession, cond func(coordinator.State) (bool, error)) (coordinator.State, error) {
	for {
		s := sess.State()
		done, err := cond(s)
		if done || err != nil {
			return s, err
		}
		select {
		case <-sess.Changed():
		case <-ctx.Done():
			return s, waitError(ctx)
		}
	}
}

// settleTranscript returns the transcript length once no message has arrived
// for quiet.
func settleTranscript(ctx context.Context, sess askSession, quiet time.Duration) (int, error) {
	n := len(sess.State().Messages)
	timer := time.NewTimer(quiet)
	defer timer.Stop()

	for {
		select {
		case <-sess.Changed():
			if m := len(sess.State().Messages); m != n {
				n = m
				timer.Reset(quiet)
			}
		case <-timer.C:
			return n, nil
		case <-ctx.Done():
			return n, waitError(ctx)
		}
	}
}

func waitError(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errors.New("timeout waiting for the agent")
	}
	return ctx.Err()
}
