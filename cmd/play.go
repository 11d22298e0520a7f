package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zplay/zplay/internal/config"
	"github.com/zplay/zplay/internal/format"
	"github.com/zplay/zplay/internal/game"
	"github.com/zplay/zplay/internal/logging"
	"github.com/zplay/zplay/internal/session"
	"github.com/zplay/zplay/internal/turn"
)

var playCmd = &cobra.Command{
	Use:   "play <game>",
	Short: "Play a game interactively",
	Long: `Play a game, reading commands from stdin one line at a time.

The game argument is either a path to a game image or a name prefix
matched against the games directory. The loop ends on EOF or when the
game quits.`,
	Args: cobra.ExactArgs(1),
	RunE: runPlay,
}

var (
	formatterFlag string
	dfrotzFlag    string
	ptyFlag       bool
	verboseFlag   bool
)

func addPlayFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&formatterFlag, "formatter", "f", "shell", "Output formatter (raw, text, shell, json, data)")
	cmd.Flags().StringVar(&dfrotzFlag, "dfrotz", "", "Path to the dfrotz executable")
	cmd.Flags().BoolVar(&ptyFlag, "pty", false, "Run the interpreter on a pseudo-terminal")
	cmd.Flags().BoolVarP(&verboseFlag, "verbose", "v", false, "Log session internals to stderr")
}

func init() {
	addPlayFlags(playCmd)
}

func runPlay(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if dfrotzFlag != "" {
		cfg.Dfrotz = dfrotzFlag
	}
	if cmd.Flags().Changed("pty") {
		cfg.UsePTY = ptyFlag
	}

	// Fail on a bad formatter name before any process is spawned.
	formatter, err := format.Lookup(formatterFlag)
	if err != nil {
		return err
	}

	pats, err := sessionPatterns(cfg)
	if err != nil {
		return err
	}

	gamefile, err := game.Resolve(args[0], cfg.GamesDir)
	if err != nil {
		return err
	}

	sess, err := session.New(gamefile,
		session.WithInterpreter(cfg.Dfrotz),
		session.WithSaveDir(cfg.SavesDir),
		session.WithTimeout(cfg.Timeout),
		session.WithSettle(cfg.Settle),
		session.WithPatterns(pats),
		session.WithPTY(cfg.UsePTY),
		session.WithLogger(logging.New(verboseFlag)),
	)
	if err != nil {
		return err
	}
	defer sess.Close()

	scanner := bufio.NewScanner(os.Stdin)
	return sess.Run(func(resp *turn.Response) (string, bool) {
		fmt.Print(formatter.Format(resp))
		if !scanner.Scan() {
			return "", false
		}
		return strings.TrimSpace(scanner.Text()), true
	})
}

func sessionPatterns(cfg *config.Config) (turn.Patterns, error) {
	pats := turn.DefaultPatterns()
	var err error
	if cfg.PromptPattern != "" {
		pats, err = pats.WithPrompt(cfg.PromptPattern)
		if err != nil {
			return pats, err
		}
	}
	if len(cfg.FailurePatterns) > 0 {
		pats, err = pats.WithFailure(cfg.FailurePatterns...)
		if err != nil {
			return pats, err
		}
	}
	return pats, nil
}
