package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"pairchat/internal/domain"
	"pairchat/internal/services/message"
	"pairchat/internal/services/session"
)

const dialTimeout = 15 * time.Second

// chat --session <id> --slot A|B: join a session and chat over stdin/stdout.
func chatCmd() *cobra.Command {
	var (
		sessionID string
		slotName  string
		secret    string
		sign      bool
		strict    bool
		exportKey string
	)
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Join a relay session and exchange encrypted messages",
		Long: "Join one slot of a relay session. Slot A initiates the key exchange.\n" +
			"Each line read from stdin is sent as a message; received messages are\n" +
			"printed as they arrive. Compare the printed session key fingerprint with\n" +
			"the other participant out of band: the handshake does not confirm keys.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				return errPasswordRequired
			}
			slot, err := domain.ParseSlot(slotName)
			if err != nil {
				return err
			}
			if secret != "" && slot != domain.SlotA {
				return fmt.Errorf("--secret only applies to slot A")
			}
			cfg := session.Config{Slot: slot, Password: password, Sign: sign}
			if secret != "" {
				cfg.Secret = []byte(secret)
			}
			if strict {
				cfg.Policy = message.PolicyStrict
			}
			return describe(runChat(cmd, domain.SessionID(sessionID), cfg, exportKey))
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "session identifier shared with the other participant")
	cmd.Flags().StringVar(&slotName, "slot", "", "slot to occupy (A or B)")
	cmd.Flags().StringVar(&secret, "secret", "", "shared secret to send (slot A; random if empty)")
	cmd.Flags().BoolVar(&sign, "sign", false, "sign outgoing messages with a per-session key")
	cmd.Flags().BoolVar(&strict, "strict", false, "reject messages whose signature does not verify")
	cmd.Flags().StringVar(&exportKey, "export-key", "", "write the wrapped session keys to this file")
	_ = cmd.MarkFlagRequired("session")
	_ = cmd.MarkFlagRequired("slot")
	return cmd
}

func runChat(cmd *cobra.Command, id domain.SessionID, cfg session.Config, exportKey string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	rc, err := wire.DialRelay(dialCtx, id, cfg.Slot)
	cancel()
	if err != nil {
		return err
	}
	defer rc.Close()

	peer, err := wire.NewPeer(rc, cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "joined session %s as %s, waiting for the other participant...\n", id, cfg.Slot)

	ctx, quit := context.WithCancel(ctx)
	defer quit()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return peer.Run(gctx) })
	g.Go(func() error { return printLoop(gctx, out, peer, id, cfg.Slot, exportKey) })
	g.Go(func() error {
		err := readLoop(gctx, cmd.InOrStdin(), out, peer)
		quit()
		return err
	})
	return g.Wait()
}

func printLoop(ctx context.Context, out io.Writer, peer *session.Peer, id domain.SessionID, slot domain.Slot, exportKey string) error {
	select {
	case <-ctx.Done():
		return nil
	case <-peer.Done():
		return nil
	case <-peer.Ready():
	}
	fmt.Fprintf(out, "session established. key fingerprint: %s\n", peer.KeyFingerprint())
	if exportKey != "" {
		path, err := wire.SaveSessionKeys(peer, id, slot, exportKey)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "wrapped keys written to %s\n", path)
	}

	msgs, errs := peer.Messages(), peer.Errors()
	for msgs != nil || errs != nil {
		select {
		case m, ok := <-msgs:
			if !ok {
				msgs = nil
				continue
			}
			printMessage(out, m)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			fmt.Fprintf(out, "! %v\n", describe(err))
		}
	}
	return nil
}

func printMessage(out io.Writer, m domain.ReceivedMessage) {
	at := time.UnixMilli(m.SentAt).Format(time.Kitchen)
	mark := ""
	switch {
	case m.Signed && m.Verified:
		mark = " [signed]"
	case m.Signed:
		mark = " [UNVERIFIED SIGNATURE]"
	}
	fmt.Fprintf(out, "[%s] %s%s: %s\n", at, m.Sender, mark, m.Plaintext)
}

// readLoop sends each stdin line until EOF or ctx ends. The scanner
// goroutine may outlive ctx while blocked on input.
func readLoop(ctx context.Context, in io.Reader, out io.Writer, peer *session.Peer) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if _, err := peer.Send(ctx, []byte(line)); err != nil {
				if errors.Is(err, domain.ErrNotEstablished) {
					fmt.Fprintf(out, "! %v\n", describe(err))
					continue
				}
				return err
			}
		}
	}
}
