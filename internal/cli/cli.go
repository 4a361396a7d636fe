package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/vk/opfuzz/internal/app"
	"github.com/vk/opfuzz/internal/binary"
	"github.com/vk/opfuzz/internal/tensor"
)

// EnvPrefix prefixes the environment variable of every flag: -max-attempts
// reads OPFUZZ_MAX_ATTEMPTS.
const EnvPrefix = "OPFUZZ_"

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(format string, args ...any) *ExitError {
	return &ExitError{Code: 2, Message: fmt.Sprintf(format, args...)}
}

// EnvName returns the environment variable consulted for a flag.
func EnvName(flagName string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(flagName, "-", "_"))
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
//
// Flags left unset on the command line take their value from OPFUZZ_*
// environment variables, then from the file named by -env-file.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("opfuzz", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
opfuzz - Seeded input generator for benchmarking binary tensor operators.

Usage:
  opfuzz [options] [SPACE_PATH...]

Arguments:
  SPACE_PATH
    Optional .hcl files or directories declaring the parameter space.
    Without them the built-in binary-op space is used.

Every option may also be set through an OPFUZZ_<NAME> environment variable,
e.g. OPFUZZ_MAX_ATTEMPTS for -max-attempts.

Options:
`)
		flagSet.PrintDefaults()
	}

	seedFlag := flagSet.Int64("seed", 0, "Seed of the first stream; stream i uses seed+i.")
	scaleFlag := flagSet.String("scale", "large", "Size regime. Options: 'small', 'medium', 'large'.")
	dtypeFlag := flagSet.String("dtype", "float32", "Tensor data type, e.g. 'float32', 'float64', 'int64'.")
	deviceFlag := flagSet.String("device", "cpu", "Tensor device. Options: 'cpu', 'cuda'.")
	gradFlag := flagSet.Bool("requires-grad", false, "Mark generated tensors as requiring gradients.")
	nFlag := flagSet.Int("n", 10, "Number of trials per stream.")
	streamsFlag := flagSet.Int("streams", 1, "Number of independent seeded streams.")
	dimFlag := flagSet.Int64("dim", 0, "Fix the operand rank to 1, 2 or 3. 0 samples it.")
	attemptsFlag := flagSet.Int("max-attempts", 0, "Samples drawn per trial before giving up. 0 uses the engine default.")
	materializeFlag := flagSet.Bool("materialize", false, "Allocate and fill CPU storage for every tensor.")
	outFlag := flagSet.String("out", "", "Write JSON lines to this file instead of stdout.")
	xlsxFlag := flagSet.String("xlsx", "", "Also write an XLSX report to this file.")
	summaryFlag := flagSet.String("summary", "", "Write run statistics as JSON to this file.")
	dumpSpaceFlag := flagSet.String("dump-space", "", "Write the active parameter space as HCL to this file, or '-' for stdout.")
	logFormatFlag := flagSet.String("log-format", "json", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	servePortFlag := flagSet.Int("serve-port", 0, "Port for the HTTP server (/health, /trials). 0 is disabled.")
	envFileFlag := flagSet.String("env-file", "", "Read OPFUZZ_* defaults from this .env file.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	if err := applyEnv(flagSet, *envFileFlag); err != nil {
		return nil, false, err
	}

	scale, err := binary.ParseScale(*scaleFlag)
	if err != nil {
		return nil, false, usageError("invalid scale: %v", err)
	}
	dtype, err := tensor.ParseDataType(*dtypeFlag)
	if err != nil {
		return nil, false, usageError("invalid dtype: %v", err)
	}
	device, err := tensor.ParseDevice(*deviceFlag)
	if err != nil {
		return nil, false, usageError("invalid device: %v", err)
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, usageError("invalid log-format: must be 'text' or 'json'")
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, usageError("invalid log-level: must be 'debug', 'info', 'warn', or 'error'")
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		Seed:  *seedFlag,
		Scale: scale,
		Attributes: binary.Attributes{
			DType:        dtype,
			Device:       device,
			RequiresGrad: *gradFlag,
		},
		SpacePaths:  flagSet.Args(),
		Dim:         *dimFlag,
		MaxAttempts: *attemptsFlag,
		Materialize: *materializeFlag,
		Trials:      *nFlag,
		Streams:     *streamsFlag,
		OutPath:     *outFlag,
		XLSXPath:    *xlsxFlag,
		SummaryPath: *summaryFlag,

		DumpSpacePath: *dumpSpaceFlag,
		LogFormat:     logFormat,
		LogLevel:      logLevel,
		ServePort:     *servePortFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}

// applyEnv fills every flag not given on the command line from the process
// environment or, failing that, from envFile.
func applyEnv(flagSet *flag.FlagSet, envFile string) error {
	fileEnv := map[string]string{}
	if envFile != "" {
		var err error
		if fileEnv, err = godotenv.Read(envFile); err != nil {
			return usageError("reading env file: %v", err)
		}
	}

	explicit := map[string]bool{}
	flagSet.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	var setErr error
	flagSet.VisitAll(func(f *flag.Flag) {
		if setErr != nil || explicit[f.Name] || f.Name == "env-file" {
			return
		}
		name := EnvName(f.Name)
		v, ok := os.LookupEnv(name)
		if !ok {
			v, ok = fileEnv[name]
		}
		if !ok {
			return
		}
		if err := flagSet.Set(f.Name, v); err != nil {
			setErr = usageError("invalid value %q for %s: %v", v, name, err)
		}
	})
	return setErr
}
