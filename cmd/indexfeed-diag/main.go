// Copyright 2026 The Indexfeed Authors
// SPDX-License-Identifier: Apache-2.0

// indexfeed-diag inspects an encoded update request stream. It decodes the
// stream through the streaming path (so it works on batches of any size)
// and prints each document, followed by a request summary, as pretty JSON
// or as CBOR diagnostic notation (RFC 8949 EDN, which preserves type
// information JSON cannot express).
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/spf13/pflag"

	"github.com/indexfeed/indexfeed/document"
	"github.com/indexfeed/indexfeed/update"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		format     string
		rawStrings bool
	)
	flags := pflag.NewFlagSet("indexfeed-diag", pflag.ContinueOnError)
	flags.StringVarP(&format, "format", "f", "json", "output format: json or edn")
	flags.BoolVar(&rawStrings, "raw-strings", false, "decode document strings lazily (exercises the raw-string path)")
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: indexfeed-diag [--format json|edn] [--raw-strings] [file]\n\nReads an encoded update request from file (or stdin) and prints each\ndocument plus a request summary.\n\n")
		flags.PrintDefaults()
	}
	if err := flags.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return 0
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}
	if format != "json" && format != "edn" {
		fmt.Fprintf(os.Stderr, "error: unknown format %q (want json or edn)\n", format)
		return 2
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	input := io.Reader(os.Stdin)
	if args := flags.Args(); len(args) > 0 {
		if len(args) > 1 {
			fmt.Fprintf(os.Stderr, "error: at most one input file, got %d arguments\n", len(args))
			return 2
		}
		file, err := os.Open(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 2
		}
		defer file.Close()
		input = file
	}

	if err := diagnose(input, os.Stdout, format, rawStrings); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

// diagnose streams the update request from r, printing one block per
// handler delivery as it decodes, then the request summary. Decoding
// through the streaming path keeps memory flat regardless of batch size.
func diagnose(r io.Reader, w io.Writer, format string, rawStrings bool) error {
	codec := &update.Codec{RawStrings: rawStrings}
	documentCount := 0

	req, err := codec.UnmarshalStreaming(r, func(doc *document.Document, req *update.Request, commitWithin *time.Duration, overwrite *bool) error {
		entry := make(map[string]any)
		if doc != nil {
			documentCount++
			entry["doc"] = plainDocument(doc)
		} else {
			// A delivery with no document is an embedded command; its
			// parameters ride on the substituted sub-request.
			entry["command"] = plainParams(req.Params())
		}
		if commitWithin != nil {
			entry["commitWithin"] = commitWithin.String()
		}
		if overwrite != nil {
			entry["overwrite"] = *overwrite
		}
		if req.IsLastDocInBatch() {
			entry["lastDocInBatch"] = true
		}
		return emit(w, format, entry)
	})
	if err != nil {
		return fmt.Errorf("decode update request: %w", err)
	}

	summary := map[string]any{
		"documents":     documentCount,
		"params":        plainParams(req.Params()),
		"deleteById":    plainDeletes(req.IDDeletes()),
		"deleteByQuery": req.DeleteQueries(),
	}
	return emit(w, format, summary)
}

// emit writes value as pretty JSON or, for edn, re-encodes it to CBOR and
// prints the diagnostic notation.
func emit(w io.Writer, format string, value any) error {
	if format == "edn" {
		data, err := cbor.Marshal(value)
		if err != nil {
			return fmt.Errorf("encode CBOR: %w", err)
		}
		notation, err := cbor.Diagnose(data)
		if err != nil {
			return fmt.Errorf("diagnose CBOR: %w", err)
		}
		_, err = fmt.Fprintln(w, notation)
		return err
	}
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
