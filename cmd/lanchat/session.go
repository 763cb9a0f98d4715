package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/daviddao/lanchat/internal/config"
	"github.com/daviddao/lanchat/internal/feed"
	"github.com/daviddao/lanchat/internal/lan"
	"github.com/daviddao/lanchat/internal/logger"
	"github.com/daviddao/lanchat/internal/outbox"
)

// session carries everything the bootstrap resolved before the chat starts.
type session struct {
	cfg     config.Config
	cfgPath string
	log     *slog.Logger
}

func newSession(cmd *cobra.Command, opts *options) (*session, error) {
	cfg, path, err := config.Open(opts.configPath)
	if err != nil {
		return nil, err
	}
	applyFlags(cmd, opts, &cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := logger.Init(logger.Config{File: cfg.Log.File, Level: cfg.Log.Level}); err != nil {
		return nil, err
	}

	if cfg.Name == "" {
		name, err := promptName(os.Stdin, cmd.OutOrStdout())
		if err != nil {
			logger.Warn("name prompt failed", "error", err)
			logger.Close()
			return nil, err
		}
		cfg.Name = name
	}
	cfg.Name = lan.SanitizeName(cfg.Name)
	logger.Info("config resolved", "path", path, "width", cfg.Width, "height", cfg.Height)

	return &session{
		cfg:     cfg,
		cfgPath: path,
		log:     logger.With("session", uuid.NewString()),
	}, nil
}

// applyFlags overrides file values with flags the user actually set.
func applyFlags(cmd *cobra.Command, opts *options, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("name") {
		cfg.Name = opts.name
	}
	if flags.Changed("width") {
		cfg.Width = opts.width
	}
	if flags.Changed("height") {
		cfg.Height = opts.height
	}
	if flags.Changed("log-file") {
		cfg.Log.File = opts.logFile
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = opts.logLevel
	}
	if flags.Lookup("bind") != nil && flags.Changed("bind") {
		cfg.Bind = opts.bind
	}
}

func (s *session) close() {
	logger.Info("session closed")
	if err := logger.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "lanchat: close log: %v\n", err)
	}
}

func (s *session) serve(ctx context.Context) error {
	addr := lan.ServerAddr(s.cfg.Bind, s.cfg.Port)
	fmt.Printf("Server '%s' listening on %s\n", s.cfg.Name, addr)
	s.log.Info("listening", "addr", addr)

	conn, err := lan.Listen(ctx, addr, s.cfg.Name)
	if err != nil {
		return err
	}
	return s.chat(ctx, conn)
}

func (s *session) connect(ctx context.Context) error {
	fmt.Printf("Client '%s' connecting to %s\n", s.cfg.Name, s.cfg.Server)
	conn, err := lan.Dial(ctx, s.cfg.Server, s.cfg.Name)
	if err != nil {
		return fmt.Errorf("%w: is a server listening there?", err)
	}
	return s.chat(ctx, conn)
}

// chat runs the terminal session until the user leaves or the peer is gone.
func (s *session) chat(ctx context.Context, conn *lan.Conn) error {
	fmt.Println("Entering chat...")
	final, err := s.run(ctx, conn, tea.WithAltScreen())
	if err != nil {
		return err
	}
	fmt.Println(exitMessage(final.endErr))
	return nil
}

// run drives one chat over conn and returns the model as it stood when the
// program exited. The feed is stopped before run returns.
func (s *session) run(ctx context.Context, conn *lan.Conn, opts ...tea.ProgramOption) (chatModel, error) {
	log := s.log.With("peer", conn.PeerName, "remote", conn.RemoteAddr().String())
	log.Info("connected")

	out := outbox.New()
	defer out.Close()

	m, err := newChatModel(s.cfg, conn.PeerName, out, log)
	if err != nil {
		conn.Close()
		return chatModel{}, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(m, append(opts, tea.WithContext(ctx))...)
	f := feed.New(conn, conn.Reader, out, feed.WithLogger(log))

	// Feed peer lines into the TUI, then report why the feed stopped.
	runErr := make(chan error, 1)
	feedDone := make(chan error, 1)
	go func() { runErr <- f.Run(ctx) }()
	go func() {
		for line := range f.Lines() {
			p.Send(peerLineMsg(line))
		}
		err := <-runErr
		p.Send(peerClosedMsg{err: err})
		feedDone <- err
	}()

	if s.cfgPath != "" {
		w, err := config.NewWatcher(s.cfgPath)
		if err != nil {
			log.Warn("config watch disabled", "path", s.cfgPath, "error", err)
		} else {
			defer w.Close()
			go func() {
				for {
					select {
					case cfg := <-w.Changes():
						p.Send(configChangedMsg(cfg))
					case <-ctx.Done():
						return
					}
				}
			}()
		}
	}

	final, err := p.Run()
	cancel()
	<-feedDone

	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return chatModel{}, fmt.Errorf("terminal: %w", err)
	}
	fm, ok := final.(chatModel)
	if !ok {
		fm = m
	}
	if fm.endErr == nil && errors.Is(err, tea.ErrProgramKilled) {
		fm.endErr = context.Canceled
	}
	log.Info("session ended", "sent", fm.sent, "received", fm.received, "error", fm.endErr)
	return fm, nil
}
