package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/halyard-dev/halyard/internal/api"
	"github.com/halyard-dev/halyard/internal/chat"
	"github.com/halyard-dev/halyard/internal/conn"
	"github.com/halyard-dev/halyard/internal/dispatch"
	"github.com/halyard-dev/halyard/internal/identity"
	"github.com/halyard-dev/halyard/internal/logging"
	"github.com/halyard-dev/halyard/internal/protocol"
	"github.com/halyard-dev/halyard/internal/replay"
)

var replayPace time.Duration

var replayCmd = &cobra.Command{
	Use:   "replay <session-id>",
	Short: "Replay a shared session from its persisted event log",
	Long: `Fetches the event log of a shared session and plays it back through
the same dispatcher used for live traffic. No channel connection is
opened in replay mode.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().DurationVar(&replayPace, "pace", 0, "delay between events (0 = default, negative = unthrottled)")
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	sessionID := args[0]

	id := identity.New()
	id.SetReplay(true)

	state := chat.NewState()
	con := newConsole()
	apiClient := api.New(cfg.Server.APIURL)

	// The manager stays disconnected for the whole replay: the replay flag
	// forbids connecting, and nothing is ever sent.
	manager := conn.NewManager(settingsFromConfig(cfg, ""), id, logging.Conn())
	dispatcher := dispatch.New(state, id, manager, dispatch.Collaborators{
		Notifier: con,
		Actions:  con,
		Terminal: con,
		Preview:  con,
	}, dispatch.Options{}, logging.Dispatch())

	// Print incrementally so the pace is visible, not just the end state.
	applier := printingApplier{dispatcher: dispatcher, console: con, state: state}
	runner := replay.NewRunner(apiClient, applier, state, con, replayPace, logging.Replay())
	if err := runner.Run(cmd.Context(), sessionID); err != nil {
		return err
	}
	con.PrintNew(state)

	if path := state.WorkspacePath(); path != "" {
		fmt.Printf("\n📂 Workspace: %s\n", path)
	}
	fmt.Printf("▶️  Replayed %d message(s) from session %s\n", state.Len(), sessionID)
	return nil
}

type printingApplier struct {
	dispatcher *dispatch.Dispatcher
	console    *console
	state      *chat.State
}

func (p printingApplier) Apply(f protocol.Frame) error {
	err := p.dispatcher.Apply(f)
	p.console.PrintNew(p.state)
	return err
}
