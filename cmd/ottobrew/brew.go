package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hammamikhairi/ottobrew/internal/config"
	"github.com/hammamikhairi/ottobrew/internal/conversation"
	"github.com/hammamikhairi/ottobrew/internal/display"
	"github.com/hammamikhairi/ottobrew/internal/domain"
	"github.com/hammamikhairi/ottobrew/internal/engine"
	"github.com/hammamikhairi/ottobrew/internal/logger"
	"github.com/hammamikhairi/ottobrew/internal/speech"
	"github.com/hammamikhairi/ottobrew/internal/timer"
)

func newBrewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "brew [recipe-id]",
		Short: "Brew with the live timer",
		Long: `Opens a brew session and shows the live pour timer.

Type start, pause, reset, status or quit at the prompt. With --listen the
same commands can be spoken.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runBrew,
	}
	addParamFlags(cmd)
	cmd.Flags().String("resume", "", "resume a stored brew by id or id prefix")
	cmd.Flags().Float64("at", -1, "jump to this many seconds into the brew")
	cmd.Flags().Bool("listen", false, "accept spoken commands via local Whisper")
	return cmd
}

func runBrew(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	resumeID, _ := cmd.Flags().GetString("resume")
	if resumeID == "" && len(args) == 0 {
		return errors.New("name a recipe to brew or pass --resume")
	}
	if listen, _ := cmd.Flags().GetBool("listen"); listen {
		e.cfg.Listen = true
	}
	at, _ := cmd.Flags().GetFloat64("at")

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	cues, voice := buildCues(ctx, e.cfg, e.log)

	eng := engine.New(e.recipes, e.store, e.log,
		engine.WithAnimationPlayer(display.NewAnimator(e.log, display.WithPhaseDuration(e.cfg.PhaseDuration))),
		engine.WithCuePlayer(cues),
		engine.WithVibrator(display.NewBell(os.Stderr, e.log)),
		engine.WithWakeLock(display.NewInhibitor(e.log)),
		engine.WithSettings(e.cfg.Settings()),
		engine.WithLead(e.cfg.LeadSeconds),
		engine.WithFrameInterval(e.cfg.FrameInterval),
		engine.WithRecomputeInterval(e.cfg.RecomputeInterval),
		engine.WithCountTiming(e.cfg.CountDelay, e.cfg.CountDuration),
	)

	// Open before the loop runs so errors surface as plain CLI errors.
	var session *domain.Session
	if resumeID != "" {
		id, err := resolveSessionID(ctx, e.store, resumeID)
		if err != nil {
			return err
		}
		session, err = eng.Resume(ctx, id)
		if err != nil {
			return err
		}
	} else {
		session, err = eng.Open(ctx, args[0], paramsFromFlags(cmd))
		if err != nil {
			return err
		}
	}
	if at >= 0 {
		if err := eng.Seek(ctx, at); err != nil {
			return err
		}
	}

	ui := display.NewUI(eng.Snapshot, display.DefaultRefreshInterval)

	var notifier domain.Notifier = conversation.NewCLINotifier(e.log, ui.Printf)
	if voice != nil {
		notifier = speech.NewSpeakingNotifier(notifier, voice, e.cfg.Locale, e.cfg.Voice, false, e.log)
	}

	supervisor := timer.New(eng, notifier, e.log,
		timer.WithCheckpointInterval(e.cfg.CheckpointInterval),
		timer.WithWatcher(
			timer.WithStallAfter(e.cfg.StallAfter),
			timer.WithPauseNudgeAfter(e.cfg.PauseNudgeAfter),
		),
	)

	var listener *speech.Listener
	if e.cfg.Listen {
		if _, err := os.Stat(e.cfg.WhisperModel); err != nil {
			return fmt.Errorf("whisper model not found at %s: %w", e.cfg.WhisperModel, err)
		}
		listener = speech.NewListener(e.cfg.WhisperBin, e.cfg.WhisperModel, e.log,
			speech.WithRecordDuration(time.Duration(e.cfg.RecordSecs)*time.Second),
			speech.WithTempDir(".ottobrew/stt"),
		)
	}

	runDone := make(chan error, 1)
	go func() { runDone <- eng.Run(ctx) }()
	supervisor.Start(ctx)
	if listener != nil {
		go listener.Run(ctx)
	}

	fmt.Println(display.RenderBanner(
		fmt.Sprintf("%s (session %s)", session.RecipeName, shortID(session.ID)),
		"Type start to begin, quit to exit.",
	))

	app := &brewApp{
		engine:   eng,
		parser:   conversation.NewKeywordParser(e.log),
		listener: listener,
		log:      e.log,
		ui:       ui,
	}
	go func() {
		ui.WaitReady()
		app.run(ctx)
		ui.Quit()
	}()

	// Bubble Tea owns the terminal until quit.
	if err := ui.Run(); err != nil {
		e.log.Error("display: %v", err)
	}

	supervisor.Stop()
	cancel()
	if err := <-runDone; err != nil && !errors.Is(err, context.Canceled) {
		e.log.Error("brew engine: %v", err)
	}

	if s := eng.Snapshot(); s.Loaded() && !s.Finished {
		fmt.Printf("Brew saved at %s. Resume with: ottobrew brew --resume %s\n", formatClock(s.ElapsedSec), shortID(s.SessionID))
	}
	return nil
}

// buildCues picks the cue player. Tones need only an audio device; spoken
// cues also need Azure credentials and fall back to tones. A nil player
// makes the engine vibrate instead.
func buildCues(ctx context.Context, cfg *config.Config, log *logger.Logger) (domain.CuePlayer, *speech.VoiceCues) {
	player, err := speech.NewPlayer(log)
	if err != nil {
		log.Error("audio player init failed, cues will vibrate: %v", err)
		return nil, nil
	}
	tones := speech.NewToneCues(player, log)

	if cfg.Cues != config.CuesVoice {
		return tones, nil
	}
	if !cfg.SpeechEnabled() {
		log.Info("spoken cues disabled: set %s and %s to enable", speech.EnvAzureSpeechKey, speech.EnvAzureSpeechRegion)
		return tones, nil
	}

	tts := speech.NewAzureClient(cfg.AzureSpeechKey, cfg.AzureSpeechRegion, log)
	voice := speech.NewVoiceCues(tts, player, log,
		speech.WithFallback(tones),
		speech.WithCache(speech.NewAudioCache(cfg.CacheDir, cfg.DiskCache, log)),
	)
	go func() {
		if err := voice.Prefetch(ctx, cfg.Locale, cfg.Voice); err != nil {
			log.Warn("prefetching spoken cues: %v", err)
		}
	}()
	log.Info("spoken cues enabled (locale=%s, region=%s)", cfg.Locale, cfg.AzureSpeechRegion)
	return voice, voice
}

// resolveSessionID expands an id prefix, as printed by history, to the
// full session id.
func resolveSessionID(ctx context.Context, store domain.SessionStore, prefix string) (string, error) {
	if s, err := store.Load(ctx, prefix); err == nil {
		return s.ID, nil
	}
	sessions, err := store.List(ctx, 0)
	if err != nil {
		return "", fmt.Errorf("listing sessions: %w", err)
	}
	var matches []string
	for _, s := range sessions {
		if strings.HasPrefix(s.ID, prefix) {
			matches = append(matches, s.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("session %q: %w", prefix, domain.ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("session prefix %q is ambiguous (%d matches)", prefix, len(matches))
	}
}

func shortID(id string) string {
	return id[:min(8, len(id))]
}

type brewApp struct {
	engine   *engine.Engine
	parser   *conversation.KeywordParser
	listener *speech.Listener // nil when voice input is disabled
	log      *logger.Logger
	ui       *display.UI
	finished bool
}

func (a *brewApp) run(ctx context.Context) {
	// Receiving on a nil channel blocks forever, so select only uses the
	// keyboard when voice is off.
	var voiceCh <-chan string
	if a.listener != nil {
		voiceCh = a.listener.C()
	}
	uiCh := a.ui.InputChan()

	watch := time.NewTicker(250 * time.Millisecond)
	defer watch.Stop()

	for {
		var cmd domain.Command
		select {
		case <-ctx.Done():
			return
		case <-watch.C:
			a.checkFinished()
			continue
		case input, ok := <-uiCh:
			if !ok {
				return
			}
			cmd = a.parser.Parse(ctx, input)
		case input := <-voiceCh:
			cmd = a.parser.ParseSpoken(ctx, input)
			if cmd.Type == domain.CommandUnknown {
				a.log.Debug("ignoring speech: %q", input)
				continue
			}
			a.ui.PrintVoice(input)
		}

		a.log.Debug("command: %s (raw=%q)", cmd.Type, cmd.Raw)
		if quit := a.handle(ctx, cmd); quit {
			return
		}
	}
}

// handle applies one command. It reports whether the app should exit.
func (a *brewApp) handle(ctx context.Context, cmd domain.Command) bool {
	var err error
	switch cmd.Type {
	case domain.CommandStart:
		err = a.engine.Start(ctx)
		if errors.Is(err, domain.ErrSessionFinished) {
			a.ui.PrintHint("This brew is finished. Type reset to brew it again.")
			return false
		}
	case domain.CommandPause:
		err = a.engine.Pause(ctx)
	case domain.CommandReset:
		err = a.engine.Reset(ctx)
		a.finished = false
	case domain.CommandStatus:
		a.printStatus()
	case domain.CommandQuit:
		return true
	default:
		a.ui.PrintHint("Commands: start, pause, reset, status, quit.")
	}
	if err != nil {
		a.ui.PrintUrgent(err.Error())
	}
	return false
}

func (a *brewApp) printStatus() {
	s := a.engine.Snapshot()
	state := "paused"
	if s.Running || s.Holding {
		state = "running"
	}
	if s.Stalled {
		state = "stalled"
	}
	if s.Finished {
		state = "finished"
	}
	line := fmt.Sprintf("%s: %s of %s, %s, %d ml poured.",
		s.RecipeName, formatClock(s.ElapsedSec), formatClock(s.FinalSec), state, s.Displayed)
	if next, ok := s.NextStep(); ok && !s.Finished {
		line += fmt.Sprintf(" Next: %s at %s.", next.Name(s.Locale), formatClock(next.TimeSec))
	}
	a.ui.PrintInfo(line)
}

func (a *brewApp) checkFinished() {
	s := a.engine.Snapshot()
	if s.Finished && !a.finished {
		a.finished = true
		a.ui.PrintInfo(fmt.Sprintf("Brew complete: %d ml in %s. Enjoy.", s.Target, formatClock(s.FinalSec)))
	}
}
