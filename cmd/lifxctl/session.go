package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/muurk/lifxlan/internal/config"
	"github.com/muurk/lifxlan/internal/discovery"
	"github.com/muurk/lifxlan/internal/logging"
	"github.com/muurk/lifxlan/internal/registry"
	"github.com/muurk/lifxlan/internal/ui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// pollInterval is how often the wait loop checks for requested MACs.
const pollInterval = 50 * time.Millisecond

// session is a discovery run plus the registry view the command acts on.
type session struct {
	cfg     *config.Config
	reg     *registry.Registry
	view    *registry.Registry
	engine  *discovery.Engine
	printer *ui.Printer

	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
	runErr error
}

// loadConfig reads --config or the default file and applies flag overrides.
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if timeout > 0 {
		cfg.Protocol.TimeoutMS = int(timeout / time.Millisecond)
	}
	if attempts > 0 {
		cfg.Protocol.Attempts = attempts
	}
	if ipv6Prefix != "" {
		cfg.Discovery.IPv6Prefix = ipv6Prefix
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func initLogging(cfg *config.Config) error {
	level := logLevel
	if level == "" {
		level = cfg.Log.Level
	}
	return logging.Initialize(level)
}

// newSession loads the config and starts discovery. The engine keeps
// running until close so bulbs stay bound while the command talks to them.
func newSession(ctx context.Context, out io.Writer) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if err := initLogging(cfg); err != nil {
		return nil, err
	}

	reg := registry.New()
	engCtx, cancel := context.WithCancel(ctx)
	s := &session{
		cfg:     cfg,
		reg:     reg,
		view:    reg.ByLists(groups, labels, macs),
		engine:  discovery.New(reg, cfg.DiscoveryOptions()),
		printer: ui.NewPrinter(out),
		cancel:  cancel,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.engine.Run(engCtx); err != nil && !errors.Is(err, context.Canceled) {
			logging.Error("Discovery stopped", zap.Error(err))
			s.mu.Lock()
			s.runErr = err
			s.mu.Unlock()
			cancel()
		}
	}()
	return s, nil
}

// wait listens for --wait, returning early once every --mac has registered.
func (s *session) wait(ctx context.Context) error {
	deadline := time.NewTimer(waitFor)
	defer deadline.Stop()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			s.reg.Wait()
			return s.discoveryErr()
		case <-ticker.C:
			if err := s.discoveryErr(); err != nil {
				return err
			}
			if len(macs) > 0 && s.reg.ByMAC(macs...).Len() == len(macs) {
				s.reg.Wait()
				return nil
			}
		}
	}
}

// scan is wait with a progress bar when stdout is a terminal.
func (s *session) scan(ctx context.Context) error {
	if !ui.IsTerminal() || jsonOutput {
		return s.wait(ctx)
	}

	id, events := s.reg.Subscribe()
	defer s.reg.Unsubscribe(id)

	final, err := tea.NewProgram(ui.NewScanModel("Discovering bulbs...", waitFor, events),
		tea.WithContext(ctx)).Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("progress display failed: %w", err)
	}
	if m, ok := final.(ui.ScanModel); ok && m.Cancelled {
		return context.Canceled
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.reg.Wait()
	return s.discoveryErr()
}

func (s *session) discoveryErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runErr
}

// close stops discovery and releases every bulb binding.
func (s *session) close() {
	s.cancel()
	s.wg.Wait()
	s.engine.Close()
	s.reg.Close()
	logging.Sync()
}

// targets returns the filtered view, failing when it is empty.
func (s *session) targets() (*registry.Registry, error) {
	if s.view.Len() == 0 {
		if s.view.IsFiltered() {
			return nil, fmt.Errorf("no bulb matched %s", describeFilter())
		}
		return nil, errors.New("no bulbs found; try a longer --wait")
	}
	return s.view, nil
}

// confirmBulk asks before a change that would hit every bulb.
func (s *session) confirmBulk(cmd *cobra.Command, action string) bool {
	if assumeYes || s.view.IsFiltered() {
		return true
	}
	return ui.Confirm(cmd.InOrStdin(), cmd.OutOrStdout(), action+" on every bulb",
		[]string{
			fmt.Sprintf("No --mac, --label or --group given, so all %d bulbs will change", s.view.Len()),
			"Pass --yes to skip this question",
		})
}

func describeFilter() string {
	var parts []string
	if len(macs) > 0 {
		parts = append(parts, "mac="+strings.Join(macs, ","))
	}
	if len(labels) > 0 {
		parts = append(parts, "label="+strings.Join(labels, ","))
	}
	if len(groups) > 0 {
		parts = append(parts, "group="+strings.Join(groups, ","))
	}
	if len(parts) == 0 {
		return "all"
	}
	return strings.Join(parts, " ")
}

// withSession runs fn against a session whose discovery wait has finished.
func withSession(cmd *cobra.Command, fn func(ctx context.Context, s *session) error) error {
	ctx := cmd.Context()
	s, err := newSession(ctx, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.wait(ctx); err != nil {
		return err
	}
	return fn(ctx, s)
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
