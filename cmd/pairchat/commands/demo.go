package commands

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"pairchat/internal/crypto"
	"pairchat/internal/domain"
	"pairchat/internal/relay"
	"pairchat/internal/services/session"
)

const demoTimeout = 2 * time.Minute

// demo: run both participants in-process over a local relay hub.
func demoCmd() *cobra.Command {
	var (
		sign     bool
		messages []string
	)
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run both sides of a session in one process",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), demoTimeout)
			defer cancel()
			return describe(runDemo(ctx, cmd.OutOrStdout(), sign, messages))
		},
	}
	cmd.Flags().BoolVar(&sign, "sign", false, "sign messages from A")
	cmd.Flags().StringSliceVar(&messages, "message", []string{"hello"}, "messages A sends to B")
	return cmd
}

func runDemo(ctx context.Context, out io.Writer, sign bool, messages []string) error {
	hub := relay.NewHub(wire.Log)
	id := domain.SessionID(uuid.NewString())
	fmt.Fprintf(out, "session %s\n", id)

	peers := make(map[domain.Slot]*session.Peer, 2)
	ctx, stop := context.WithCancel(ctx)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)
	for _, slot := range []domain.Slot{domain.SlotA, domain.SlotB} {
		rc, err := relay.NewLocalClient(hub, id, slot)
		if err != nil {
			return err
		}
		defer rc.Close()
		pw, err := crypto.RandomBytes(16)
		if err != nil {
			return err
		}
		p, err := wire.NewPeer(rc, session.Config{
			Slot:     slot,
			Password: hex.EncodeToString(pw),
			Sign:     sign && slot == domain.SlotA,
		})
		if err != nil {
			return err
		}
		peers[slot] = p
		g.Go(func() error { return p.Run(gctx) })
	}
	a, b := peers[domain.SlotA], peers[domain.SlotB]

	g.Go(func() error {
		defer stop()
		for _, p := range []*session.Peer{a, b} {
			select {
			case <-p.Ready():
			case <-p.Done():
				return p.Err()
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		fmt.Fprintf(out, "A key fingerprint: %s\nB key fingerprint: %s\n", a.KeyFingerprint(), b.KeyFingerprint())
		if a.KeyFingerprint() != b.KeyFingerprint() {
			return fmt.Errorf("%w: session keys differ", domain.ErrAuthentication)
		}
		for _, text := range messages {
			if _, err := a.Send(gctx, []byte(text)); err != nil {
				return err
			}
			select {
			case m, ok := <-b.Messages():
				if !ok {
					return b.Err()
				}
				printMessage(out, m)
			case err := <-b.Errors():
				return err
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})
	return g.Wait()
}
