package cli

import (
	"errors"
	"flag"
	"io"
	"strings"
)

const usageLine = "usage: s3-restore [flags] <s3_uri, e.g. s3://bucket/prefix/>"

// The caller prints the returned error once; the flag set itself stays quiet.
func flagUsageError(fs *flag.FlagSet, cause error) error {
	var b strings.Builder
	if cause != nil {
		b.WriteString(cause.Error() + "\n")
	}
	printUsage(&b, fs)
	return &UsageError{msg: strings.TrimRight(b.String(), "\n")}
}

func parseRunArgs(args []string, defaultConfigPath string) (runOptions, error) {
	fs := flag.NewFlagSet("s3-restore", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}

	opts := runOptions{set: make(map[string]bool)}
	fs.StringVar(&opts.ConfigPath, "config", defaultConfigPath, "path to config file")
	fs.StringVar(&opts.Region, "region", "", "AWS region (default: AWS environment, then us-west-2)")
	fs.StringVar(&opts.Endpoint, "endpoint", "", "custom S3 endpoint URL")
	fs.StringVar(&opts.Profile, "profile", "", "shared AWS config profile")
	fs.BoolVar(&opts.PathStyle, "path-style", false, "use path-style bucket addressing")
	fs.IntVar(&opts.MaxAttempts, "max-attempts", 0, "maximum attempts per S3 request, including retries")
	fs.IntVar(&opts.PageSize, "page-size", 0, "versions requested per listing page (1-1000)")
	fs.IntVar(&opts.RequestTimeout, "request-timeout", 0, "per-request timeout in seconds (0 for none)")
	fs.BoolVar(&opts.FailFast, "fail-fast", false, "stop at the first failed restore")
	fs.Float64Var(&opts.DeletesPerSecond, "rate", 0, "maximum delete requests per second (0 for unlimited)")
	fs.StringVar(&opts.LogLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	fs.StringVar(&opts.LogFormat, "log-format", "", "log format: console or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			err = nil
		}
		return runOptions{}, flagUsageError(fs, err)
	}
	fs.Visit(func(f *flag.Flag) {
		opts.set[f.Name] = true
	})

	rest := fs.Args()
	if len(rest) != 1 {
		return runOptions{}, flagUsageError(fs, nil)
	}
	opts.URI = rest[0]
	return opts, nil
}

func printUsage(w io.Writer, fs *flag.FlagSet) {
	_, _ = io.WriteString(w, usageLine+"\n\nflags:\n")
	fs.SetOutput(w)
	fs.PrintDefaults()
	fs.SetOutput(io.Discard)
}
