package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"ghosttype/internal/config"
	"ghosttype/internal/engine"
	"ghosttype/internal/guard"
	"ghosttype/internal/session"
)

// version is set at build time via -ldflags "-X main.version=x.y.z"
var version = "dev"

func main() {
	log.SetOutput(os.Stderr)
	log.SetPrefix("[ghosttype] ")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ghosttype",
	Short: "Type text into the focused window via synthetic keyboard events",
}

func init() {
	rootCmd.AddCommand(
		typeCmd(),
		resetCmd(),
		backendsCmd(),
		versionCmd(),
	)
}

func typeCmd() *cobra.Command {
	var (
		charDelay time.Duration
		preDelay  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "type <text>",
		Short: "Type the given text into the currently focused window",
		Long: `Type the given text into whatever window holds input focus, one
synthetic keystroke at a time.

The pre-delay gives you time to focus the target field before the first
character goes out. A single dropped character is logged and skipped, not
fatal; the run reports success when every character has been attempted.

On success the single line "SUCCESS" is written to stdout; all diagnostics
go to stderr. Exit status is 0 on success, 130 when interrupted, 1 on any
other failure.`,
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := config.Load()
			if err != nil {
				log.Printf("failed to load config: %v", err)
				os.Exit(1)
			}
			if err := cfg.Validate(); err != nil {
				log.Printf("invalid config: %v", err)
				os.Exit(1)
			}

			req := engine.Request{
				Text:      args[0],
				CharDelay: cfg.Typing.CharDelay(),
				PreDelay:  cfg.Typing.PreDelay(),
			}
			if cmd.Flags().Changed("delay") {
				req.CharDelay = charDelay
			}
			if cmd.Flags().Changed("pre-delay") {
				req.PreDelay = preDelay
			}
			if req.CharDelay < 0 || req.PreDelay < 0 {
				log.Printf("delays must be >= 0")
				os.Exit(1)
			}

			outcome := guard.New(cfg).Run(req)
			os.Exit(outcome.ExitCode())
		},
	}

	cmd.Flags().DurationVar(&charDelay, "delay", 100*time.Millisecond, "delay between characters")
	cmd.Flags().DurationVar(&preDelay, "pre-delay", 500*time.Millisecond, "delay before the first character")

	return cmd
}

func resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Release a stuck keyboard by cycling an injection session",
		Long: `Acquire an injection session and immediately release it.

Use this when a killed run left the platform input stack in a stuck state
(for example a modifier that never got its key-up event). No text is typed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			return runReset(cfg)
		},
	}
}

func runReset(cfg *config.Config) error {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	fmt.Println("Keyboard reset utility")
	fmt.Println()

	fmt.Println("Step 1: Acquiring injection session...")
	h, err := session.Open(context.Background(), cfg.ToSessionConfig())
	if err != nil {
		fmt.Printf("%s could not acquire a session: %v\n", red("error:"), err)
		return err
	}
	fmt.Printf("%s session acquired via %s\n", green("ok:"), h.Backend())

	fmt.Println("Step 2: Settling...")
	time.Sleep(500 * time.Millisecond)

	fmt.Println("Step 3: Releasing session...")
	h.Release()
	time.Sleep(500 * time.Millisecond)
	fmt.Printf("%s session released\n", green("ok:"))

	fmt.Println()
	fmt.Println("Try typing now. If the keyboard is still stuck:")
	fmt.Println("  1. Kill any remaining ghosttype processes")
	fmt.Println("  2. Unplug and replug the physical keyboard")
	fmt.Println("  3. Last resort: reboot")

	return nil
}

func backendsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "Show injection backend availability",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			green := color.New(color.FgGreen).SprintFunc()
			red := color.New(color.FgRed).SprintFunc()

			for _, st := range session.Backends(cfg.ToSessionConfig()) {
				mark := " "
				if st.Configured {
					mark = "*"
				}
				if st.Err != nil {
					fmt.Printf("%s %-8s %s %v\n", mark, st.Name, red("unavailable:"), st.Err)
				} else {
					fmt.Printf("%s %-8s %s\n", mark, st.Name, green("available"))
				}
			}
			fmt.Println()
			fmt.Println("* = enabled in config (tried in config order)")
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print application version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("ghosttype %s\n", version)
		},
	}
}
