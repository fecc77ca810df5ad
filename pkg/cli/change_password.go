package cli

import (
	"flag"
	"fmt"

	"github.com/platinummonkey/harbor-usertools/pkg/password"
)

func newChangePasswordCommand() *Command {
	cmd := &Command{
		Name:        "change-password",
		Description: "Change your own password, or another user's as an admin",
		Flags:       flag.NewFlagSet("change-password", flag.ContinueOnError),
		Run:         runChangePassword,
	}

	addCommonFlags(cmd.Flags)
	cmd.Flags.String("user", "", "Your username (default $HARBOR_ADMIN_USER)")
	cmd.Flags.Bool("prompt-pass", false, "Prompt for your password even if HARBOR_ADMIN_PASS is set")
	cmd.Flags.String("target", "", "Username whose password to set (admin only)")

	return cmd
}

func runChangePassword(args []string) (err error) {
	cmd := newChangePasswordCommand()
	if ok, err := parseFlags(cmd.Flags, args); !ok {
		return err
	}

	cfg, err := loadConfig(cmd.Flags)
	if err != nil {
		return err
	}
	if isFlagSet(cmd.Flags, "user") {
		cfg.Harbor.User = cmd.Flags.Lookup("user").Value.String()
	}
	promptPass := flagBool(cmd.Flags.Lookup("prompt-pass"))
	target := cmd.Flags.Lookup("target").Value.String()

	actingUser, err := cfg.ActingUser()
	if err != nil {
		return usageError(err)
	}
	if err := validateConfig(cfg); err != nil {
		return err
	}

	prompter := newPrompter()
	actingPass := cfg.Harbor.Password
	if promptPass || actingPass == "" {
		actingPass, err = prompter.PromptPassword("Password for acting user: ")
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
	}

	s, err := newSession(cfg, "change-password")
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	client, err := s.client(actingUser, actingPass)
	if err != nil {
		return err
	}

	changer := password.NewChanger(client, prompter, s.log.WithField("acting_user", actingUser))
	msg, err := changer.Change(s.ctx, actingUser, target)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "[OK] %s\n", msg)
	return nil
}
