// Package app implements the falconf operations (init, sync, add, list,
// undo, remove, edit, push, status, history) on top of an installation.
//
// Every mutating operation follows the same shape: pull, mutate the
// in-memory ledger, run the scheduler if needed, then write and push. When
// a step fails partway the mutations applied so far are still written and
// pushed before the error is returned.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/GideonBear/falconf/internal/engine"
	"github.com/GideonBear/falconf/internal/installation"
	"github.com/GideonBear/falconf/internal/ledger"
	"github.com/GideonBear/falconf/internal/pieces"
)

var (
	// ErrInUse is returned by Remove for a record that some machine still
	// depends on.
	ErrInUse = errors.New("app: piece is still in use; undo it everywhere first or pass --force")

	// ErrAborted is returned when the operator declines a confirmation.
	ErrAborted = errors.New("app: aborted")
)

// Options configure a Service.
type Options struct {
	Logger *slog.Logger

	// Runner runs apt and command pieces.
	Runner pieces.CommandRunner

	// Prompter asks for confirmations and manual steps.
	Prompter pieces.Prompter

	// TestRun marks pieces as done without running them.
	TestRun bool

	// Capabilities replaces the default kind registry.
	Capabilities engine.Capabilities

	// Hostname is recorded for this machine when the ledger lacks it;
	// os.Hostname when empty.
	Hostname string
}

// Service runs operations against one opened installation.
type Service struct {
	inst     *installation.Installation
	caps     engine.Capabilities
	prompter pieces.Prompter
	logger   *slog.Logger
	testRun  bool
	hostname string
}

// New creates a Service for inst.
func New(inst *installation.Installation, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	runner := opts.Runner
	if runner == nil {
		runner = pieces.ExecRunner{Stdin: os.Stdin, Stdout: os.Stderr, Stderr: os.Stderr}
	}
	caps := opts.Capabilities
	if caps == nil {
		caps = pieces.NewDefaultRegistry(runner, opts.Prompter, inst.AptOptions(), logger)
	}
	return &Service{
		inst:     inst,
		caps:     caps,
		prompter: opts.Prompter,
		logger:   logger,
		testRun:  opts.TestRun,
		hostname: opts.Hostname,
	}
}

// Installation returns the underlying installation.
func (s *Service) Installation() *installation.Installation {
	return s.inst
}

// Close closes the installation.
func (s *Service) Close() error {
	return s.inst.Close()
}

func (s *Service) ledger() *ledger.Ledger {
	return s.inst.Ledger()
}

func (s *Service) execContext() pieces.ExecContext {
	return s.inst.ExecContext(s.testRun)
}

// push writes and pushes the ledger, joining a push failure with an
// earlier operation error.
func (s *Service) push(ctx context.Context, message string, changed []string, opErr error) error {
	if _, err := s.inst.Repository().WriteAndPush(ctx, message, changed); err != nil {
		if opErr != nil {
			return errors.Join(opErr, err)
		}
		return err
	}
	return opErr
}

// ensureMachine adds this machine to the ledger when it is missing.
func (s *Service) ensureMachine() error {
	m := s.inst.Machine()
	if _, ok := s.ledger().Machine(m); ok {
		return nil
	}
	host := s.hostname
	if host == "" {
		var err error
		if host, err = os.Hostname(); err != nil {
			return fmt.Errorf("hostname: %w", err)
		}
	}
	s.ledger().AddMachine(m, ledger.NewMachineData(host))
	s.logger.Info("added this machine to the ledger", "machine", m.String(), "hostname", host)
	return nil
}

// machineName is the hostname recorded for this machine, or its id.
func (s *Service) machineName() string {
	if data, ok := s.ledger().Machine(s.inst.Machine()); ok && data.Hostname != "" {
		return data.Hostname
	}
	return s.inst.Machine().String()
}

func idList(records []*ledger.Record) string {
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID().String()
	}
	return strings.Join(ids, ", ")
}
