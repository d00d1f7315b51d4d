package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	apierrors "github.com/cyberedpro/cybered/pkg/errors"
)

// callCommand creates the call command, a raw entry into the gateway.
func (c *CLI) callCommand() *cobra.Command {
	var (
		data    string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "call METHOD ENDPOINT",
		Short: "Send a request through the gateway and print the JSON response",
		Long: `Send one request through the gateway.

GET requests are answered from the response cache when a fresh entry exists;
writes invalidate the cached resources they affect. Transient failures are
retried with exponential backoff.

--data takes a JSON document, or @file to read one, or @- for stdin.`,
		Example: `  cybered call GET /courses/
  cybered call POST /enrollments/ --data '{"course_id": 2}'
  cybered call PUT /courses/3 --data @course.json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			method := strings.ToUpper(args[0])

			body, err := readBody(data, cmd.InOrStdin())
			if err != nil {
				return err
			}

			e, err := c.newEnv(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			prog := newProgress(loggerFromContext(ctx))
			res, err := e.client.Gateway().Call(ctx, args[1], method, body, !noCache)
			if err != nil {
				return describe(err)
			}
			prog.done(method + " " + args[1])

			return writeResult(c.out, res)
		},
	}

	cmd.Flags().StringVarP(&data, "data", "d", "", "JSON request body, @file or @-")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass the response cache for GET")

	return cmd
}

// readBody resolves the --data flag into a JSON body, or nil when unset.
func readBody(data string, stdin io.Reader) (json.RawMessage, error) {
	if data == "" {
		return nil, nil
	}

	var raw []byte
	switch {
	case data == "@-":
		b, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		raw = b
	case strings.HasPrefix(data, "@"):
		b, err := os.ReadFile(data[1:])
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		raw = b
	default:
		raw = []byte(data)
	}

	raw = bytes.TrimSpace(raw)
	if !json.Valid(raw) {
		return nil, apierrors.New(apierrors.ErrCodeInvalidInput, "--data is not valid JSON")
	}
	return raw, nil
}

// writeResult pretty-prints a call result. A no-content result prints
// nothing.
func writeResult(w io.Writer, res json.RawMessage) error {
	if len(res) == 0 {
		return nil
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, res, "", "  "); err != nil {
		return err
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(w)
	return err
}

// cliError carries a user-facing message for a failed API call while
// keeping the cause for errors.Is.
type cliError struct {
	msg string
	err error
}

func (e *cliError) Error() string { return e.msg }
func (e *cliError) Unwrap() error { return e.err }

// describe turns a gateway failure into the message shown to the user.
// Cancellation passes through unchanged so main can exit quietly.
func describe(err error) error {
	if err == nil || errors.Is(err, context.Canceled) {
		return err
	}

	msg := apierrors.UserMessage(err)
	if h, ok := apierrors.AsHTTP(err); ok {
		msg = fmt.Sprintf("%d %s", h.Status, h.Message)
		if h.Status == http.StatusUnauthorized {
			msg += " (run 'cybered login' first)"
		}
	} else if code := apierrors.GetCode(err); code != "" {
		msg = fmt.Sprintf("%s: %s", strings.ToLower(strings.ReplaceAll(string(code), "_", " ")), msg)
		var ae *apierrors.Error
		if errors.As(err, &ae) && ae.Cause != nil && !errors.Is(ae.Cause, context.DeadlineExceeded) {
			msg += ": " + ae.Cause.Error()
		}
	}
	return &cliError{msg: msg, err: err}
}
