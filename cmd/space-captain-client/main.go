// Command space-captain-client is a small CLI exercising the legacy
// stream-mode demo handlers (echo/reverse/time) and the secure
// transport's PING, over whichever transport the chosen subcommand
// targets.
package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	tcpclient "github.com/mgreenly/space-captain/client/tcp"
	udpclient "github.com/mgreenly/space-captain/client/udp"
	"github.com/mgreenly/space-captain/session"
	"github.com/mgreenly/space-captain/wire"
)

var (
	tcpAddr    string
	udpAddr    string
	pinnedHash string
	dialTO     time.Duration
)

func main() {
	root := &cobra.Command{
		Use:   "space-captain-client",
		Short: "Exercises a space-captain server over its stream or secure transport",
	}
	root.PersistentFlags().StringVar(&tcpAddr, "tcp-addr", "127.0.0.1:7070", "stream-mode server address")
	root.PersistentFlags().StringVar(&udpAddr, "udp-addr", "127.0.0.1:7443", "secure-transport server address")
	root.PersistentFlags().StringVar(&pinnedHash, "pinned-hash", "", "hex-encoded SHA-256 of the server certificate (secure transport)")
	root.PersistentFlags().DurationVar(&dialTO, "timeout", 5*time.Second, "connect/handshake timeout")

	root.AddCommand(echoCmd(), reverseCmd(), timeCmd(), pingCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func echoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "echo [text]",
		Short: "Send an ECHO request over the stream transport",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runLegacy(wire.LegacyEcho, args[0])
		},
	}
}

func reverseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reverse [text]",
		Short: "Send a REVERSE request over the stream transport",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runLegacy(wire.LegacyReverse, args[0])
		},
	}
}

func timeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "time",
		Short: "Send a TIME request over the stream transport",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runLegacy(wire.LegacyTime, "\x00")
		},
	}
}

func runLegacy(t wire.Type, payload string) error {
	c, err := tcpclient.Dial(tcpAddr, dialTO)
	if err != nil {
		return err
	}
	defer c.Close()

	resp, err := c.Request(t, []byte(payload))
	if err != nil {
		return err
	}
	fmt.Println(string(resp.Payload))
	return nil
}

func pingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Send a PING over the secure transport and print the round-trip latency",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			var hash []byte
			if pinnedHash != "" {
				var err error
				hash, err = hex.DecodeString(pinnedHash)
				if err != nil {
					return err
				}
			}
			dtlsCtx, err := session.NewClientContext(hash)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), dialTO)
			defer cancel()

			c, err := udpclient.Dial(ctx, udpAddr, dtlsCtx)
			if err != nil {
				return err
			}
			defer c.Close()

			start := time.Now()
			if _, err := c.Request(wire.Ping, nil); err != nil {
				return err
			}
			fmt.Printf("pong in %s\n", time.Since(start))
			return nil
		},
	}
}
