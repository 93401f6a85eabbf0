package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/plgd-dev/coapnet/message"
	"github.com/plgd-dev/coapnet/message/codes"
	"github.com/plgd-dev/coapnet/udp"
	"github.com/plgd-dev/coapnet/udp/client"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRootCmd(cfg *config) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "coapc",
		Short:         "CoAP over UDP client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&cfg.Target, "target", "t", cfg.Target, "server address host[:port]")
	rootCmd.PersistentFlags().StringVarP(&cfg.LogLevel, "log-level", "l", cfg.LogLevel, "log level")
	rootCmd.PersistentFlags().DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "time to wait for a reply")
	rootCmd.PersistentFlags().StringVar(&cfg.MaxPayloadSize, "max-payload-size", cfg.MaxPayloadSize, "limit of a block-wise body, e.g. 64KiB")
	rootCmd.PersistentFlags().IntVar(&cfg.TokenLength, "token-length", cfg.TokenLength, "token length in bytes")

	rootCmd.AddCommand(
		newGetCmd(cfg),
		newBodyCmd(cfg, codes.POST),
		newBodyCmd(cfg, codes.PUT),
		newDeleteCmd(cfg),
		newObserveCmd(cfg),
	)
	return rootCmd
}

// withClient dials the configured target and runs f with the connected client.
func withClient(ctx context.Context, cfg *config, f func(c *client.Client) error) error {
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()
	opts, err := cfg.dialOptions(logger)
	if err != nil {
		return err
	}
	c, err := udp.Dial(ctx, cfg.Target, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if errC := c.Close(); errC != nil {
			logger.Warn("cannot close client", zap.Error(errC))
		}
	}()
	return f(c)
}

func printResponse(w io.Writer, resp *client.Response) {
	fmt.Fprintf(w, "%v\n", resp.Code)
	if len(resp.Payload) > 0 {
		fmt.Fprintf(w, "%s\n", resp.Payload)
	}
}

func newGetCmd(cfg *config) *cobra.Command {
	return &cobra.Command{
		Use:   "get <path> [query...]",
		Short: "Retrieve a resource",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), cfg, func(c *client.Client) error {
				resp, err := c.Get(cmd.Context(), args[0], args[1:]...)
				if err != nil {
					return err
				}
				printResponse(cmd.OutOrStdout(), resp)
				return nil
			})
		},
	}
}

// newBodyCmd creates post or put, the payload is read from --data or from stdin when --data is "-".
func newBodyCmd(cfg *config, method codes.Code) *cobra.Command {
	var data string
	var contentFormat int
	name := map[codes.Code]string{codes.POST: "post", codes.PUT: "put"}[method]
	cmd := &cobra.Command{
		Use:   name + " <path>",
		Short: fmt.Sprintf("Send a %v request with a payload", method),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := []byte(data)
			if data == "-" {
				var err error
				payload, err = io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("cannot read payload: %w", err)
				}
			}
			cf := message.MediaType(contentFormat)
			return withClient(cmd.Context(), cfg, func(c *client.Client) error {
				resp, err := c.Request(cmd.Context(), client.Request{
					Method: method,
					Options: client.RequestOptions{
						URIPath:       args[0],
						ContentFormat: &cf,
					},
					Payload: payload,
				})
				if err != nil {
					return err
				}
				printResponse(cmd.OutOrStdout(), resp)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&data, "data", "d", "", "payload, - reads stdin")
	cmd.Flags().IntVarP(&contentFormat, "content-format", "c", int(message.TextPlain), "content format of the payload")
	return cmd
}

func newDeleteCmd(cfg *config) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <path>",
		Short: "Delete a resource",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), cfg, func(c *client.Client) error {
				resp, err := c.Delete(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				printResponse(cmd.OutOrStdout(), resp)
				return nil
			})
		},
	}
}

func newObserveCmd(cfg *config) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "observe <path>",
		Short: "Print notifications of a resource until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), cfg, func(c *client.Client) error {
				return observe(cmd.Context(), c, args[0], count, cmd.OutOrStdout())
			})
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 0, "stop after n notifications, 0 waits for an interrupt")
	return cmd
}

// observe prints the established response and then each notification until count
// notifications arrived, ctx is done or the server ends the observation.
func observe(ctx context.Context, c *client.Client, path string, count int, w io.Writer) error {
	stopCtx, stop := context.WithCancel(ctx)
	defer stop()
	var mutex sync.Mutex
	var n int
	printed := make(chan struct{})
	o, err := c.Observe(ctx, client.Request{
		Method:  codes.GET,
		Options: client.RequestOptions{URIPath: path},
	}, func(resp *client.Response) {
		<-printed
		mutex.Lock()
		defer mutex.Unlock()
		if count > 0 && n >= count {
			return
		}
		printResponse(w, resp)
		n++
		if count > 0 && n >= count {
			stop()
		}
	})
	if err != nil {
		close(printed)
		return err
	}
	printResponse(w, o.Response())
	close(printed)
	if o.Canceled() {
		return errors.New("resource is not observable")
	}
	select {
	case <-stopCtx.Done():
	case <-o.Done():
		return nil
	}
	return o.Cancel(context.WithoutCancel(ctx))
}
