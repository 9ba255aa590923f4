package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/danielpatrickdp/stance-controller/internal/autonomy"
	"github.com/danielpatrickdp/stance-controller/internal/config"
	"github.com/danielpatrickdp/stance-controller/internal/drift"
	"github.com/danielpatrickdp/stance-controller/internal/engine"
	"github.com/danielpatrickdp/stance-controller/internal/events"
	"github.com/danielpatrickdp/stance-controller/internal/idle"
	"github.com/danielpatrickdp/stance-controller/internal/logging"
	"github.com/danielpatrickdp/stance-controller/internal/model"
	"github.com/danielpatrickdp/stance-controller/internal/operator"
	"github.com/danielpatrickdp/stance-controller/internal/store"
)

// #region main
func main() {
	configPath := flag.String("config", os.Getenv("STANCE_CONFIG"), "path to YAML config file")
	sessionID := flag.String("session", "", "session id (generated when empty)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	st, err := store.NewStore(cfg.DBPath)
	if err != nil {
		logger.Fatalw("open store", "path", cfg.DBPath, "error", err)
	}
	defer st.Close()

	session := *sessionID
	if session == "" {
		session = autonomy.NewSessionID()
	}

	current, err := st.LoadStance(session)
	if errors.Is(err, store.ErrNotFound) {
		current, err = st.CreateInitialStance(session)
	}
	if err != nil {
		logger.Fatalw("load or create stance", "error", err)
	}

	gen := model.NewRetrier(model.NewHTTPClient(cfg.ModelURL), 500*time.Millisecond)
	eng := engine.New(operator.NewRegistry(), logger)
	bus := events.NewBus(logger)
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	mgr := autonomy.NewManager(
		autonomy.Config{Autonomy: cfg.Autonomy, Mode: cfg.Mode},
		idleConfigFrom(cfg.Idle),
		eng, gen, bus, st, logger,
	)
	mgr.SetRand(rng)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eventCh, unsubscribe := bus.Subscribe(session)

	g, gctx := errgroup.WithContext(ctx)
	det := mgr.Detector(session)
	g.Go(func() error {
		det.Run(gctx)
		return nil
	})
	g.Go(func() error {
		printEvents(eventCh)
		return nil
	})

	fmt.Println("Stance Controller ready.")
	fmt.Printf("  DB: %s | Model: %s (%s) | Session: %s\n", cfg.DBPath, cfg.ModelName, cfg.ModelURL, session)
	fmt.Println("Type a message, or /help for commands ('quit' to exit):")

	scanner := bufio.NewScanner(os.Stdin)
	var history []operator.Turn

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			break
		}
		if strings.HasPrefix(line, "/") {
			runCommand(mgr, st, session, line)
			continue
		}

		mgr.RecordActivity(session, "message", "repl")

		current, err = st.LoadStance(session)
		if err != nil {
			logger.Errorw("load stance", "error", err)
			continue
		}

		octx := operator.Context{
			Message:  line,
			Triggers: operator.DeriveTriggers(line),
			History:  history,
			Config:   cfg.Mode,
			Rand:     rng,
		}
		result := eng.ApplyTurn(current, eng.Registry().Names(), octx, cfg.Mode)

		genCtx, genCancel := context.WithTimeout(ctx, 60*time.Second)
		resp, err := gen.Generate(genCtx, model.Request{
			Model:  cfg.ModelName,
			System: systemPrompt(result),
			Prompt: line,
		})
		genCancel()
		if err != nil {
			logger.Errorw("model error", "error", err)
			continue
		}

		fmt.Printf("\n%s\n\n", resp.Text)

		if err := st.SaveStance(result.Stance); err != nil {
			logger.Errorw("save stance", "error", err)
		}
		logTurn(st, result, octx, logger)

		history = append(history,
			operator.Turn{Role: "user", Content: line},
			operator.Turn{Role: "assistant", Content: resp.Text},
		)

		fmt.Printf("[v%d] frame=%s applied=%d rejected=%d drift=%.2f coherence=%.1f\n",
			result.Stance.Version, result.Stance.Frame,
			len(result.Applied), len(result.Rejected),
			result.Stance.CumulativeDrift, result.Coherence)
	}

	mgr.Terminate(session)
	cancel()
	unsubscribe()
	g.Wait()
}

// #endregion main

// #region turn-helpers

// systemPrompt assembles the persona directive from the turn's applied
// operator injections plus a short stance summary.
func systemPrompt(result engine.TurnResult) string {
	var b strings.Builder
	s := result.Stance
	fmt.Fprintf(&b, "You respond from a %s frame, as a %s whose objective is to %s.\n",
		s.Frame, s.SelfModel, s.Objective)
	fmt.Fprintf(&b, "Curiosity %.0f, certainty %.0f, novelty %.0f, empathy %.0f (0-100 scales).\n",
		s.Values.Curiosity, s.Values.Certainty, s.Values.Novelty, s.Values.Empathy)
	for _, ap := range result.Applied {
		if ap.Injection != "" {
			b.WriteString(ap.Injection)
			b.WriteString("\n")
		}
	}
	for _, c := range s.Constraints {
		fmt.Fprintf(&b, "Constraint: %s\n", c)
	}
	return b.String()
}

// logTurn records one provenance row per applied and rejected operator.
func logTurn(st *store.Store, result engine.TurnResult, octx operator.Context, logger *zap.SugaredLogger) {
	now := time.Now().UTC()
	trigger := strings.Join(octx.Triggers, ",")
	for _, ap := range result.Applied {
		err := st.LogDecision(logging.ProvenanceEntry{
			SessionID:   result.Stance.SessionID,
			Version:     result.Stance.Version,
			Operator:    ap.Name,
			TriggerType: trigger,
			Decision:    "commit",
			Magnitude:   ap.Magnitude,
			CreatedAt:   now,
		})
		if err != nil {
			logger.Errorw("provenance", "error", err)
		}
	}
	for _, rj := range result.Rejected {
		err := st.LogDecision(logging.ProvenanceEntry{
			SessionID:   result.Stance.SessionID,
			Version:     result.Stance.Version,
			Operator:    rj.Name,
			TriggerType: trigger,
			Decision:    "reject",
			Reason:      rj.Reason,
			CreatedAt:   now,
		})
		if err != nil {
			logger.Errorw("provenance", "error", err)
		}
	}
}

// #endregion turn-helpers

// #region commands

// runCommand dispatches a slash command against the autonomy control surface.
func runCommand(mgr *autonomy.Manager, st *store.Store, session, line string) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/help":
		fmt.Println("  /trigger [mode]   start an autonomous session now (default exploration)")
		fmt.Println("  /chunks           show the prepared prompt plan")
		fmt.Println("  /edit <id> <txt>  edit an editable prompt chunk")
		fmt.Println("  /approve          approve a prepared session")
		fmt.Println("  /reject           reject a prepared session")
		fmt.Println("  /pause /resume    pause or resume the active session")
		fmt.Println("  /terminate        stop the session")
		fmt.Println("  /status           show executor state")
		fmt.Println("  /stance           show the current stance")
		fmt.Println("  /idle [minutes]   show idle status or set the threshold")
	case "/trigger":
		mode := autonomy.ModeExploration
		if len(fields) > 1 {
			mode = autonomy.Mode(fields[1])
		}
		ok, msg := mgr.TriggerNow(session, mode)
		fmt.Printf("  triggered=%v: %s\n", ok, msg)
	case "/chunks":
		status, chunks, err := mgr.GetChunks(session)
		if err != nil {
			fmt.Printf("  error: %v\n", err)
			return
		}
		fmt.Printf("  status=%s\n", status)
		for _, c := range chunks {
			flag := "read-only"
			if c.Editable {
				flag = "editable"
			}
			fmt.Printf("  [%s] (%s, %s)\n    %s\n", c.ID, c.Type, flag, c.Content)
		}
	case "/edit":
		if len(fields) < 3 {
			fmt.Println("  usage: /edit <chunk-id> <content>")
			return
		}
		content := strings.Join(fields[2:], " ")
		if mgr.UpdateChunk(session, fields[1], content) {
			fmt.Println("  chunk updated")
		} else {
			fmt.Println("  chunk not editable or session not awaiting approval")
		}
	case "/approve":
		report(mgr.Approve(session), "session approved")
	case "/reject":
		report(mgr.Reject(session), "session rejected")
	case "/pause":
		report(mgr.Pause(session), "session paused")
	case "/resume":
		report(mgr.Resume(session), "session resumed")
	case "/terminate":
		report(mgr.Terminate(session), "terminate requested")
	case "/status":
		state, err := mgr.ExecutorState(session)
		if err != nil {
			fmt.Printf("  error: %v\n", err)
			return
		}
		fmt.Printf("  status=%s turn=%d discoveries=%d heartbeat=%s\n",
			state.Status, state.CurrentTurn, len(state.Discoveries),
			state.LastHeartbeat.Format(time.RFC3339))
	case "/stance":
		s, err := st.LoadStance(session)
		if err != nil {
			fmt.Printf("  error: %v\n", err)
			return
		}
		fmt.Printf("  v%d frame=%s self=%s objective=%s drift=%.2f coherence=%.1f\n",
			s.Version, s.Frame, s.SelfModel, s.Objective,
			s.CumulativeDrift, drift.Coherence(s))
		fmt.Printf("  curiosity=%.0f certainty=%.0f risk=%.0f novelty=%.0f empathy=%.0f provocation=%.0f synthesis=%.0f\n",
			s.Values.Curiosity, s.Values.Certainty, s.Values.Risk,
			s.Values.Novelty, s.Values.Empathy, s.Values.Provocation, s.Values.Synthesis)
		fmt.Printf("  awareness=%.0f autonomy=%.0f identity=%.0f\n",
			s.Sentience.AwarenessLevel, s.Sentience.AutonomyLevel, s.Sentience.IdentityStrength)
	case "/idle":
		if len(fields) > 1 {
			var minutes float32
			if _, err := fmt.Sscanf(fields[1], "%f", &minutes); err == nil && minutes > 0 {
				mgr.UpdateIdleThreshold(minutes)
				fmt.Printf("  idle threshold set to %.1f minutes\n", minutes)
				return
			}
			fmt.Println("  usage: /idle [minutes]")
			return
		}
		snap := mgr.Detector(session).Snapshot()
		fmt.Printf("  status=%s idle=%v duration=%s threshold=%s\n",
			snap.Status, snap.IsIdle, snap.IdleDuration, snap.Threshold)
	default:
		fmt.Println("  unknown command, try /help")
	}
}

func report(err error, ok string) {
	if err != nil {
		fmt.Printf("  error: %v\n", err)
		return
	}
	fmt.Printf("  %s\n", ok)
}

// #endregion commands

// #region event-stream

// printEvents renders bus events for the interactive session.
func printEvents(ch <-chan events.Event) {
	for ev := range ch {
		switch ev.Type {
		case events.TypeHeartbeat:
			// too chatty for the console
		case events.TypeDiscovery:
			fmt.Printf("\n[discovery] %s\n> ", ev.Discovery)
		case events.TypeTurnCompleted:
			fmt.Printf("\n[autonomous turn %d] %s\n> ", ev.Turn, truncate(ev.Response, 200))
		case events.TypeStatusChange:
			fmt.Printf("\n[session] status=%s\n> ", ev.Status)
		case events.TypePromptReady:
			fmt.Printf("\n[session] prompt ready, %d chunks; /chunks to review, /approve to start\n> ", len(ev.Chunks))
		case events.TypeSessionComplete:
			fmt.Printf("\n[session] complete: %s\n> ", ev.Status)
		case events.TypeError:
			fmt.Printf("\n[session] error: %s\n> ", ev.Error)
		}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// #endregion event-stream

// #region config-helpers

func idleConfigFrom(cfg config.IdleConfig) idle.Config {
	return idle.Config{
		Threshold:    time.Duration(cfg.ThresholdMinutes * float32(time.Minute)),
		PollInterval: cfg.PollInterval,
	}
}

// #endregion config-helpers
