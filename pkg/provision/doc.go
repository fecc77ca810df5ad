// Package provision creates Harbor users and project memberships from CSV.
//
// Each CSV row goes through three steps: validation (required fields and
// role mapping), user resolution (exact-name search, creation when absent),
// and membership assignment for every target project. Every step appends a
// Result; a failing row never stops the batch. Running the same CSV twice
// is safe: existing users and memberships are reported as SKIP.
//
//	records, err := provision.ReadRecords(f)
//	p := provision.New(client, provision.Options{
//		DefaultProjects:        provision.SplitDefaultProjects("demo,ops"),
//		CreateProjectIfMissing: true,
//	}, logger, metrics)
//	run, err := p.Run(ctx, records)
//	_ = provision.WriteResults(os.Stdout, run.Results)
//
// Harbor does not always return a freshly created user or project from the
// very next read, so creation is followed by a bounded Poller instead of a
// fixed sleep.
package provision
