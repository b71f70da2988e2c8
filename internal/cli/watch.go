package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/vk/wrangler/internal/app"
	"github.com/vk/wrangler/internal/session"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
	"go.uber.org/zap"
)

// watchOptions configure the watch client.
type watchOptions struct {
	URL       string
	Namespace string
	Timeout   time.Duration
	// Count stops after that many snapshots when positive.
	Count int
	// Mutation is sent as a "mutate" event once connected.
	Mutation string
}

func newWatchCommand(outW, errW io.Writer) *cobra.Command {
	opts := watchOptions{}
	cmd := &cobra.Command{
		Use:   "watch <url>",
		Short: "Print change snapshots of a served workflow",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.URL = args[0]
			logger := zap.NewNop().Sugar()
			if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
				logger = app.NewLogger("debug", "text", errW)
			}
			return watch(cmd.Context(), outW, logger, opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.Namespace, "namespace", "/", "socket.io namespace.")
	f.DurationVar(&opts.Timeout, "timeout", 0, "Stop after this long. 0 waits until interrupted.")
	f.IntVar(&opts.Count, "count", 0, "Stop after this many snapshots. 0 is unlimited.")
	f.StringVar(&opts.Mutation, "mutate", "", `Send one mutation once connected, e.g. '{"op":"removeOutput","name":"big"}'.`)
	f.Bool("verbose", false, "Log connection events to stderr.")
	return cmd
}

func watch(ctx context.Context, outW io.Writer, logger *zap.SugaredLogger, opts watchOptions) error {
	parsedURL, err := url.Parse(opts.URL)
	if err != nil {
		return usageError(fmt.Errorf("failed to parse URL: %w", err))
	}
	var mutation any
	if opts.Mutation != "" {
		if _, err := session.DecodeMutation(opts.Mutation); err != nil {
			return usageError(err)
		}
		if err := json.Unmarshal([]byte(opts.Mutation), &mutation); err != nil {
			return usageError(err)
		}
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	sockOpts := socket.DefaultOptions()
	if parsedURL.Path != "" && parsedURL.Path != "/" {
		sockOpts.SetPath(parsedURL.Path)
	}
	sockOpts.SetTransports(types.NewSet(transports.WebSocket))

	manager := socket.NewManager(baseURL, sockOpts)
	io := manager.Socket(opts.Namespace, sockOpts)
	defer io.Disconnect()

	snapshots := make(chan any, 16)
	failures := make(chan error, 4)

	io.On(types.EventName("connect"), func(...any) {
		logger.Infow("Connected.", "url", opts.URL, "sid", io.Id())
		if mutation != nil {
			io.Emit(app.EventMutate, mutation)
		}
	})
	fail := func(err error) {
		select {
		case failures <- err:
		default:
		}
	}
	io.On(types.EventName("connect_error"), func(errs ...any) {
		fail(fmt.Errorf("connect: %v", first(errs)))
	})
	io.On(types.EventName(app.EventMutationError), func(data ...any) {
		fail(fmt.Errorf("mutation rejected: %v", first(data)))
	})
	io.On(types.EventName(app.EventChange), func(data ...any) {
		select {
		case snapshots <- first(data):
		default:
			logger.Warnw("Dropping snapshot, printer is behind.")
		}
	})
	io.Connect()

	seen := 0
	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) && seen == 0 {
				return fmt.Errorf("timed out after %s without a snapshot", opts.Timeout)
			}
			return nil
		case err := <-failures:
			return err
		case payload := <-snapshots:
			line, err := summarize(payload)
			if err != nil {
				return err
			}
			fmt.Fprintln(outW, line)
			seen++
			if opts.Count > 0 && seen >= opts.Count {
				return nil
			}
		}
	}
}

func first(args []any) any {
	if len(args) == 0 {
		return nil
	}
	return args[0]
}

// summarize renders a snapshot as one line: step count, outputs with row
// counts, and failing steps.
func summarize(payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	var snap session.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return "", fmt.Errorf("decode snapshot: %w", err)
	}

	names := make([]string, 0, len(snap.Outputs))
	for name := range snap.Outputs {
		names = append(names, name)
	}
	slices.Sort(names)
	outputs := make([]string, len(names))
	for i, name := range names {
		if t := snap.Outputs[name]; t != nil {
			outputs[i] = fmt.Sprintf("%s(%d rows)", name, t.NumRows())
		} else {
			outputs[i] = name + "(pending)"
		}
	}

	line := fmt.Sprintf("steps=%d outputs=[%s]", len(snap.Steps), strings.Join(outputs, " "))
	if len(snap.Errors) > 0 {
		failing := make([]string, 0, len(snap.Errors))
		for id := range snap.Errors {
			failing = append(failing, id)
		}
		slices.Sort(failing)
		line += fmt.Sprintf(" failing=[%s]", strings.Join(failing, " "))
	}
	return line, nil
}
