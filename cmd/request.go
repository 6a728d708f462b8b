package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"

	"github.com/rm-hull/authfetch/internal"
)

type RequestArgs struct {
	Method   string
	Path     string
	Data     string
	DataFile string
	Headers  []string
	Out      io.Writer
}

// Request performs a single authenticated request and writes the response
// status line and body to args.Out.
func Request(ctx context.Context, settings internal.Settings, args RequestArgs) error {
	client, store, err := bootstrap(settings, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close session store")
		}
	}()

	header, err := parseHeaders(args.Headers)
	if err != nil {
		return err
	}

	opts := internal.RequestOptions{Method: strings.ToUpper(args.Method), Header: header}
	switch {
	case args.Data != "" && args.DataFile != "":
		return errors.New("--data and --data-file are mutually exclusive")
	case args.Data != "":
		opts.Body = args.Data
	case args.DataFile != "":
		f, err := os.Open(args.DataFile)
		if err != nil {
			return errors.Wrapf(err, "failed to open %s", args.DataFile)
		}
		defer func() { _ = f.Close() }()
		opts.Body = io.NopCloser(f)
	}

	resp, err := client.Request(ctx, args.Path, opts)
	if err != nil {
		if se, ok := internal.AsSessionExpired(err); ok {
			return errors.Newf("session expired, log in again at %s", se.LoginPath)
		}
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close body")
		}
	}()

	if _, err := fmt.Fprintf(args.Out, "%s %s\n", resp.Proto, resp.Status); err != nil {
		return err
	}
	if _, err := io.Copy(args.Out, resp.Body); err != nil {
		return errors.Wrap(err, "failed to read response body")
	}
	return nil
}

func parseHeaders(raw []string) (http.Header, error) {
	header := make(http.Header, len(raw))
	for _, h := range raw {
		name, value, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, errors.Newf("invalid header %q, expected 'Name: value'", h)
		}
		header.Add(strings.TrimSpace(name), strings.TrimSpace(value))
	}
	return header, nil
}
