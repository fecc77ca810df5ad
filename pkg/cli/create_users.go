package cli

import (
	"flag"
	"fmt"

	"github.com/platinummonkey/harbor-usertools/pkg/provision"
	"github.com/platinummonkey/harbor-usertools/pkg/source"
)

func newCreateUsersCommand() *Command {
	cmd := &Command{
		Name:        "create-users",
		Description: "Create users from CSV and add them to projects",
		Flags:       flag.NewFlagSet("create-users", flag.ContinueOnError),
		Run:         runCreateUsers,
	}

	addCommonFlags(cmd.Flags)
	cmd.Flags.String("csv", "", "CSV input: a file, - for stdin, or s3://bucket/key (headers: Username,Password,Role[,Project])")
	cmd.Flags.String("admin-user", "", "Harbor admin username (default $HARBOR_ADMIN_USER)")
	cmd.Flags.String("admin-pass", "", "Harbor admin password (default $HARBOR_ADMIN_PASS, prompted if unset)")
	cmd.Flags.String("project", "", "Default projects (comma-separated) for rows without a Project")
	cmd.Flags.Bool("create-project-if-missing", false, "Create projects that do not exist")
	cmd.Flags.String("report", "", "Also write the results as CSV to this file")

	return cmd
}

func runCreateUsers(args []string) (err error) {
	cmd := newCreateUsersCommand()
	if ok, err := parseFlags(cmd.Flags, args); !ok {
		return err
	}

	cfg, err := loadConfig(cmd.Flags)
	if err != nil {
		return err
	}
	if isFlagSet(cmd.Flags, "admin-user") {
		cfg.Harbor.User = cmd.Flags.Lookup("admin-user").Value.String()
	}
	if isFlagSet(cmd.Flags, "admin-pass") {
		cfg.Harbor.Password = cmd.Flags.Lookup("admin-pass").Value.String()
	}
	if isFlagSet(cmd.Flags, "project") {
		cfg.Provision.DefaultProjects = provision.SplitDefaultProjects(cmd.Flags.Lookup("project").Value.String())
	}
	if flagBool(cmd.Flags.Lookup("create-project-if-missing")) {
		cfg.Provision.CreateProjectIfMissing = true
	}
	csvLocation := cmd.Flags.Lookup("csv").Value.String()
	reportPath := cmd.Flags.Lookup("report").Value.String()

	if csvLocation == "" {
		return usageErrorf("--csv is required")
	}
	adminUser, err := cfg.ActingUser()
	if err != nil {
		return usageError(err)
	}
	if err := validateConfig(cfg); err != nil {
		return err
	}

	adminPass := cfg.Harbor.Password
	if adminPass == "" {
		adminPass, err = newPrompter().PromptPassword("Admin password: ")
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
	}

	s, err := newSession(cfg, "create-users")
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	in, err := source.Open(s.ctx, csvLocation, source.S3Options{
		Endpoint:     cfg.S3.Endpoint,
		Region:       cfg.S3.Region,
		AccessKey:    cfg.S3.AccessKey,
		SecretKey:    cfg.S3.SecretKey,
		UsePathStyle: cfg.S3.UsePathStyle,
	})
	if err != nil {
		return err
	}
	records, err := provision.ReadRecords(in)
	in.Close()
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", csvLocation, err)
	}

	client, err := s.client(adminUser, adminPass)
	if err != nil {
		return err
	}

	p := provision.New(client, provision.Options{
		DefaultProjects:        cfg.Provision.DefaultProjects,
		CreateProjectIfMissing: cfg.Provision.CreateProjectIfMissing,
		Poller: provision.Poller{
			SettleDelay: cfg.Provision.SettleDelay,
			Interval:    cfg.Provision.PollInterval,
			Attempts:    cfg.Provision.PollAttempts,
		},
		ProjectCacheSize: cfg.Provision.ProjectCacheSize,
	}, s.log.WithField("admin_user", adminUser), s.metrics)

	run, runErr := p.Run(s.ctx, records)

	if err := provision.WriteResults(stdout, run.Results); err != nil {
		return err
	}
	if reportPath != "" {
		if err := provision.WriteCSVReportFile(reportPath, run); err != nil {
			return err
		}
		s.log.WithField("path", reportPath).Info("Report written")
	}
	return runErr
}
