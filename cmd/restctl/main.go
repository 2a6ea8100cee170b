// Command restctl sends a single request to the restaurants API and
// prints the normalized result.
//
// Usage:
//
//	restctl [flags] [payload-json]
//
// The payload is taken from -f (JSON or YAML) or the first argument.
// Settings not given as flags come from RESTAURANTS_* environment
// variables. restctl exits with status 1 when the result is a failure.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/openrest/restaurants-go/client"
	"github.com/openrest/restaurants-go/client/restytransport"
	"github.com/openrest/restaurants-go/internal/config"
	"github.com/openrest/restaurants-go/internal/logger"
)

// errFailedResult reports a dispatch that completed with an error result.
var errFailedResult = errors.New("request failed")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errFailedResult) {
			fmt.Fprintf(os.Stderr, "restctl: %v\n", err)
		}
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	fs := flag.NewFlagSet("restctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	file := fs.String("f", "", "read the request payload from `file` (.json, .yaml or - for stdin)")
	fs.StringVar(&cfg.APIURL, "url", cfg.APIURL, "restaurants API `url`")
	fs.StringVar(&cfg.Output, "o", cfg.Output, "output format: json or yaml")
	fs.StringVar(&cfg.Transport, "transport", cfg.Transport, "transport: http or resty")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "dispatch timeout, 0 disables it")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !slices.Contains(config.Outputs, cfg.Output) {
		return fmt.Errorf("invalid output %q (want one of %v)", cfg.Output, config.Outputs)
	}

	log := logger.New(cfg.LogLevel, stderr)
	defer func() { _ = log.Sync() }()

	payload, err := readPayload(*file, fs.Args(), stdin)
	if err != nil {
		return err
	}

	c, err := newClient(cfg, log)
	if err != nil {
		return err
	}

	log.Debug("dispatching", zap.String("url", c.URL()), zap.String("transport", cfg.Transport))

	res, err := c.Do(ctx, payload).Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for result: %w", err)
	}

	if err := render(stdout, cfg.Output, res); err != nil {
		return err
	}

	if !res.OK() {
		log.Debug("dispatch failed", zap.String("code", res.Error), zap.String("message", res.ErrorMessage))
		return errFailedResult
	}

	return nil
}

func newClient(cfg *config.Config, log *zap.Logger) (*client.Client, error) {
	opts := []client.Option{
		client.WithTimeout(cfg.Timeout),
		client.WithUserAgent(cfg.UserAgent),
		client.WithLogger(logger.Slog(log)),
	}

	switch cfg.Transport {
	case "resty":
		if cfg.ThrottleRPS > 0 {
			return nil, errors.New("throttling is only supported by the http transport")
		}
		opts = append(opts, client.WithTransportFactory(restytransport.Factory(restytransport.New(0))))
	case "http":
		if cfg.ThrottleRPS > 0 {
			opts = append(opts, client.WithThrottle(cfg.ThrottleRPS, cfg.ThrottleBurst))
		}
	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Transport)
	}

	c, err := client.Build(cfg.APIURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("build client: %w", err)
	}

	return c, nil
}

// readPayload decodes the request payload from file, stdin or the
// first positional argument.
func readPayload(file string, args []string, stdin io.Reader) (any, error) {
	var (
		raw    []byte
		isYAML bool
	)

	switch {
	case file == "-":
		b, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		raw, isYAML = b, true
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read payload file: %w", err)
		}
		ext := strings.ToLower(filepath.Ext(file))
		raw, isYAML = b, ext == ".yaml" || ext == ".yml"
	case len(args) == 1:
		raw = []byte(args[0])
	case len(args) == 0:
		return nil, errors.New("no payload: pass it as an argument or with -f")
	default:
		return nil, fmt.Errorf("expected one payload argument, got %d", len(args))
	}

	var payload any
	if isYAML {
		if err := yaml.Unmarshal(raw, &payload); err != nil {
			return nil, fmt.Errorf("decode yaml payload: %w", err)
		}
		return payload, nil
	}

	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode json payload: %w", err)
	}

	return payload, nil
}

// render writes res to w in the given format.
func render(w io.Writer, format string, res client.Result) error {
	switch format {
	case "yaml":
		doc, err := resultDoc(res)
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	default:
		_, err := fmt.Fprintln(w, res.String())
		return err
	}
}

// resultDoc turns res into plain values so the value renders as YAML
// rather than as raw JSON bytes.
func resultDoc(res client.Result) (map[string]any, error) {
	if !res.OK() {
		return map[string]any{"error": res.Error, "errorMessage": res.ErrorMessage}, nil
	}

	var value any
	if err := json.Unmarshal(res.Value, &value); err != nil {
		return nil, fmt.Errorf("decode value: %w", err)
	}

	return map[string]any{"value": value}, nil
}
