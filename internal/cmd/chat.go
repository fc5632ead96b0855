package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/reeflective/readline"
	"github.com/spf13/cobra"

	"github.com/halyard-dev/halyard/internal/api"
	"github.com/halyard-dev/halyard/internal/appdir"
	"github.com/halyard-dev/halyard/internal/chat"
	"github.com/halyard-dev/halyard/internal/config"
	"github.com/halyard-dev/halyard/internal/conn"
	"github.com/halyard-dev/halyard/internal/dispatch"
	"github.com/halyard-dev/halyard/internal/identity"
	"github.com/halyard-dev/halyard/internal/logging"
	"github.com/halyard-dev/halyard/internal/protocol"
	"github.com/halyard-dev/halyard/internal/secrets"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive session with the remote agent",
	Long: `Opens the duplex channel to the configured agent and starts an
interactive prompt. Messages typed while the channel is down are queued
and sent once the agent is ready.`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

// slashCommands lists the available commands for help and completion.
var slashCommands = []struct {
	name, description string
}{
	{"/help", "Show available commands"},
	{"/status", "Show connection status"},
	{"/share", "Print the share link for this session"},
	{"/cancel", "Cancel the current task"},
	{"/quit", "Exit the chat"},
	{"/exit", "Exit the chat (alias)"},
}

func runChat(cmd *cobra.Command, args []string) error {
	runtime, err := buildRuntime()
	if err != nil {
		return err
	}
	defer runtime.teardown()

	if err := runtime.manager.Connect(); err != nil {
		// Queueing covers the gap; report and keep the prompt usable.
		runtime.console.Notify(dispatch.SeverityWarning,
			fmt.Sprintf("could not reach the agent: %v", err))
	}

	return runInteractiveLoop(runtime)
}

// runtime bundles the wired session components for the chat command.
type runtime struct {
	identity   *identity.Identity
	state      *chat.State
	manager    *conn.Manager
	dispatcher *dispatch.Dispatcher
	console    *console
	watcher    *config.Watcher
}

// buildRuntime wires identity, connection manager, dispatcher, console and
// the config watcher into a ready-to-connect session.
func buildRuntime() (*runtime, error) {
	devicePath, err := appdir.DeviceFile()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve device file: %w", err)
	}
	id, err := identity.Load(devicePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load device identity: %w", err)
	}

	token, err := secrets.AccessToken()
	if err != nil && !errors.Is(err, secrets.ErrNotFound) && !errors.Is(err, secrets.ErrNotSupported) {
		return nil, fmt.Errorf("failed to read access token: %w", err)
	}

	manager := conn.NewManager(settingsFromConfig(cfg, token), id, logging.Conn())

	state := chat.NewState()
	con := newConsole()
	apiClient := api.New(cfg.Server.APIURL)

	dispatcher := dispatch.New(state, id, manager, dispatch.Collaborators{
		Notifier:   con,
		Actions:    con,
		Terminal:   con,
		Preview:    con,
		Summarizer: apiClient,
	}, dispatch.Options{}, logging.Dispatch())

	manager.SetSink(func(f protocol.Frame) {
		if err := dispatcher.Apply(f); err != nil {
			logging.Dispatch().Warn("failed to apply frame", "type", f.Type, "error", err)
		}
		con.PrintNew(state)
	})
	manager.SetNotice(func(message string) {
		con.Notify(dispatch.SeverityWarning, message)
	})

	// Identity changes (device id, replay flag) may make a connection
	// possible or forbidden; let the manager re-decide.
	id.Subscribe(manager.Reevaluate)

	// Config edits apply to the next connection without disturbing the
	// current one.
	watcher, err := config.NewWatcher(cfgFile, func(next config.Config) {
		s := manager.Settings()
		manager.SetSettings(settingsFromConfig(next, s.Token))
	}, logging.Session())
	if err != nil {
		logging.Session().Warn("config watcher unavailable", "error", err)
	} else if err := watcher.Start(); err != nil {
		logging.Session().Warn("config watcher failed to start", "error", err)
		watcher.Close()
		watcher = nil
	}

	return &runtime{
		identity:   id,
		state:      state,
		manager:    manager,
		dispatcher: dispatcher,
		console:    con,
		watcher:    watcher,
	}, nil
}

func settingsFromConfig(c config.Config, token string) conn.Settings {
	return conn.Settings{
		ChannelURL:  c.Server.ChannelURL,
		Model:       c.Agent.Model,
		Provider:    c.Agent.Provider,
		NativeTools: c.Agent.NativeTools,
		Token:       token,
	}
}

func (r *runtime) teardown() {
	if r.watcher != nil {
		r.watcher.Close()
	}
	r.dispatcher.Teardown()
}

func runInteractiveLoop(rt *runtime) error {
	rl := readline.NewShell()
	rl.Prompt.Primary(func() string { return "halyard> " })

	history := readline.NewInMemoryHistory()
	rl.History.Add("default", history)

	rl.Completer = func(line []rune, cursor int) readline.Completions {
		return completeInput(string(line), cursor)
	}

	fmt.Println("\n📝 Type your message and press Enter. Use /help for commands.")

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == io.EOF || err == readline.ErrInterrupt {
				fmt.Println("\n👋 Goodbye!")
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := handleCommand(rt, line); quit {
				fmt.Println("👋 Goodbye!")
				return nil
			}
			continue
		}

		if !rt.dispatcher.Submit(line, nil) {
			fmt.Println("📤 Queued - the agent is not ready yet; your message will be sent when it is.")
		}
	}
}

// handleCommand processes a slash command. It returns true when the loop
// should exit.
func handleCommand(rt *runtime, line string) bool {
	switch strings.Fields(line)[0] {
	case "/quit", "/exit", "/q":
		return true
	case "/cancel":
		if rt.dispatcher.Cancel() {
			fmt.Println("🛑 Cancel requested.")
		} else {
			fmt.Println("Nothing to cancel.")
		}
	case "/status":
		printStatus(rt)
	case "/share":
		link := rt.identity.ShareLink(cfg.Server.APIURL)
		if link == "" {
			fmt.Println("No session yet - send a message first.")
		} else {
			fmt.Printf("🔗 %s\n", link)
		}
	case "/help", "/h", "/?":
		for _, c := range slashCommands {
			fmt.Printf("  %-10s %s\n", c.name, c.description)
		}
	default:
		fmt.Printf("Unknown command %q. Use /help.\n", line)
	}
	return false
}

func printStatus(rt *runtime) {
	status := rt.manager.Monitor().Snapshot()
	fmt.Printf("  state:    %s\n", status.State)
	fmt.Printf("  queued:   %d\n", rt.manager.Queue().Len())
	fmt.Printf("  task:     %s\n", rt.state.Task())
	if id := rt.identity.SessionID(); id != "" {
		fmt.Printf("  session:  %s\n", id)
	}
	if title := rt.state.Title(); title != "" {
		fmt.Printf("  title:    %s\n", title)
	}
	if path := rt.state.WorkspacePath(); path != "" {
		fmt.Printf("  worktree: %s\n", path)
	}
}

// completeInput offers slash-command completion at the start of the line.
func completeInput(line string, cursor int) readline.Completions {
	if !strings.HasPrefix(line, "/") || strings.ContainsRune(line, ' ') {
		return readline.Completions{}
	}
	var pairs []string
	for _, c := range slashCommands {
		if strings.HasPrefix(c.name, line[:cursor]) {
			pairs = append(pairs, c.name, c.description)
		}
	}
	if len(pairs) == 0 {
		return readline.Completions{}
	}
	return readline.CompleteValuesDescribed(pairs...).Tag("commands")
}
