package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dvloznov/batch-etl/internal/bookmark"
)

// Names of the batch job's arguments, without the leading "--".
const (
	ArgJobName        = "JOB_NAME"
	ArgInputPath      = "input_path"
	ArgOutputPath     = "output_path"
	ArgDatabaseName   = "database_name"
	ArgTableName      = "table_name"
	ArgBookmarkOption = "job-bookmark-option"
)

// RequiredJobArgs must all be present for the batch job to start.
var RequiredJobArgs = []string{ArgJobName, ArgInputPath, ArgOutputPath, ArgDatabaseName, ArgTableName}

// ResolveOptions parses "--key value" and "--key=value" pairs from argv. Arguments
// that do not start with "--" are ignored. Every name in required must be present;
// otherwise the error lists all that are missing.
func ResolveOptions(argv []string, required ...string) (map[string]string, error) {
	opts := make(map[string]string)

	for i := 0; i < len(argv); i++ {
		arg := argv[i]
		if !strings.HasPrefix(arg, "--") {
			continue
		}
		name := strings.TrimPrefix(arg, "--")
		if k, v, ok := strings.Cut(name, "="); ok {
			opts[k] = v
			continue
		}
		if i+1 < len(argv) && !strings.HasPrefix(argv[i+1], "--") {
			opts[name] = argv[i+1]
			i++
			continue
		}
		opts[name] = ""
	}

	var missing []string
	for _, r := range required {
		if v, ok := opts[r]; !ok || v == "" {
			missing = append(missing, r)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("missing required job arguments: %s", strings.Join(missing, ", "))
	}
	return opts, nil
}

// Argv renders arguments as "--key value" pairs in sorted key order. Keys may be
// given with or without the leading "--".
func Argv(args map[string]string) []string {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	argv := make([]string, 0, 2*len(keys))
	for _, k := range keys {
		argv = append(argv, "--"+strings.TrimPrefix(k, "--"), args[k])
	}
	return argv
}

// JobArgs is the typed view of the batch job's arguments.
type JobArgs struct {
	JobName        string
	InputPath      string
	OutputPath     string
	DatabaseName   string
	TableName      string
	BookmarkOption bookmark.Option
}

// ParseJobArgs resolves and validates the batch job's arguments.
func ParseJobArgs(argv []string) (JobArgs, error) {
	opts, err := ResolveOptions(argv, RequiredJobArgs...)
	if err != nil {
		return JobArgs{}, err
	}

	opt, err := bookmark.ParseOption(opts[ArgBookmarkOption])
	if err != nil {
		return JobArgs{}, err
	}

	return JobArgs{
		JobName:        opts[ArgJobName],
		InputPath:      opts[ArgInputPath],
		OutputPath:     opts[ArgOutputPath],
		DatabaseName:   opts[ArgDatabaseName],
		TableName:      opts[ArgTableName],
		BookmarkOption: opt,
	}, nil
}
