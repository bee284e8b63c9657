package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"qchat/internal/app"
	"qchat/internal/channel"
	"qchat/internal/crypto"
	"qchat/internal/domain"
	"qchat/internal/navigator"
)

const chatHelp = `Type a message and press enter to send it.
  /as alice|bob        switch the sending party
  /new                 run a fresh key exchange (drops the current session)
  /home /about /chat   switch screens; /chat reconnects a closed channel
  /decrypt <ct>        decrypt a ciphertext over the REST fallback
  /key                 show the session key fingerprint
  /quit                leave`

const aboutText = `qchat drives a BB84 quantum key distribution demo. Alice and Bob
establish a shared key over a simulated quantum channel; the measured
quantum bit error rate (QBER) reveals an eavesdropper. Messages are then
encrypted with that key by the backend and relayed over a websocket.`

// terminal prints channel activity as lines. Output is serialised because
// callbacks arrive from the channel's read goroutine.
type terminal struct {
	mu  sync.Mutex
	out io.Writer
}

func (t *terminal) printf(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, format, args...)
}

func (t *terminal) StateChanged(s domain.ChannelState) {
	t.printf("* channel %s\n", s)
}

func (t *terminal) SessionInfo(info domain.SessionInfo) {
	t.printf("* session %s, %d-bit key %s, %d stored messages\n",
		info.SessionID.Short(), info.KeyLength, info.KeyFingerprint, info.MessageCount)
}

func (t *terminal) MessageReceived(_ domain.MessageID, msg domain.ChatMessage) {
	t.printf("%s\n", formatMessage(msg))
}

func (t *terminal) MessageDecrypted(_ domain.MessageID, msg domain.ChatMessage) {
	t.printf("%s\n", formatMessage(msg))
}

func (t *terminal) Notice(n channel.Notice) {
	t.printf("! %s\n", n.Message)
}

var _ channel.Observer = (*terminal)(nil)

func chatCmd() *cobra.Command {
	var (
		pf     protocolFlags
		resume bool
	)
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Run a key exchange and chat over the secure channel",
		Long:  "Run a key exchange and chat over the secure channel.\n\n" + chatHelp,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			term := &terminal{out: cmd.OutOrStdout()}
			a := app.New(wire, term, func(from, to navigator.State) {
				term.printf("* %s -> %s\n", from, to)
			})
			defer a.Close()

			s := &chatSession{app: a, term: term, flags: cmd.Flags(), pf: &pf, sender: domain.SenderAlice}
			if resume {
				if passphrase == "" {
					return fmt.Errorf("passphrase required (-p) to resume")
				}
				sess, err := a.Resume(ctx, passphrase)
				if errors.Is(err, domain.ErrNoSession) {
					return fmt.Errorf("no saved session in %s", home)
				}
				if err != nil && !sess.Valid() {
					return err
				}
				if err != nil {
					term.printf("! %v\n", err)
				}
			} else {
				s.newSession(ctx)
			}

			term.printf("Sending as %s. /help for commands.\n", s.sender)
			return s.loop(ctx, cmd.InOrStdin())
		},
	}
	pf.register(cmd.Flags())
	cmd.Flags().BoolVar(&resume, "resume", false, "resume the session saved with --passphrase")
	return cmd
}

type chatSession struct {
	app    *app.App
	term   *terminal
	flags  *pflag.FlagSet
	pf     *protocolFlags
	sender domain.Sender
}

func (s *chatSession) newSession(ctx context.Context) {
	sess, err := s.app.KeyExchange(ctx, s.pf.config(s.flags), passphrase)
	if err != nil {
		var buf strings.Builder
		printHandshakeError(&buf, err)
		s.term.printf("%sUse /new to try again.\n", buf.String())
		return
	}
	var buf strings.Builder
	printReport(&buf, sess)
	s.term.printf("%s", buf.String())
}

func (s *chatSession) loop(ctx context.Context, in io.Reader) error {
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
			if quit := s.handle(ctx, strings.TrimSpace(line)); quit {
				return nil
			}
		}
	}
}

// handle runs one input line and reports whether the user asked to quit.
func (s *chatSession) handle(ctx context.Context, line string) bool {
	if line == "" {
		return false
	}
	if !strings.HasPrefix(line, "/") {
		s.send(line)
		return false
	}

	verb, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch verb {
	case "/quit", "/exit":
		return true
	case "/help":
		s.term.printf("%s\n", chatHelp)
	case "/as":
		sender, err := domain.ParseSender(arg)
		if err != nil {
			s.term.printf("! %v\n", err)
			return false
		}
		s.sender = sender
		s.term.printf("* sending as %s\n", sender)
	case "/new":
		s.newSession(ctx)
	case "/home":
		s.navigate(ctx, navigator.Home)
	case "/about":
		s.navigate(ctx, navigator.About)
		s.term.printf("%s\n", aboutText)
	case "/chat":
		s.navigate(ctx, navigator.Chat)
	case "/key":
		if sess, ok := s.app.Nav.Session(); ok {
			s.term.printf("* key fingerprint %s\n", crypto.Fingerprint(sess.QuantumKey))
		} else {
			s.term.printf("! %v\n", domain.ErrNoSession)
		}
	case "/decrypt":
		if arg == "" {
			s.term.printf("! usage: /decrypt <ciphertext>\n")
			return false
		}
		pt, err := s.app.Nav.Decrypt(ctx, arg)
		if err != nil {
			s.term.printf("! decrypt: %v\n", err)
			return false
		}
		s.term.printf("* %s\n", pt)
	default:
		s.term.printf("! unknown command %s; /help lists them\n", verb)
	}
	return false
}

func (s *chatSession) send(text string) {
	err := s.app.Nav.Send(s.sender, text)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrChannelNotReady):
		s.term.printf("! not connected; use /chat to reconnect or /new for a fresh session\n")
	default:
		s.term.printf("! send: %v\n", err)
	}
}

func (s *chatSession) navigate(ctx context.Context, to navigator.State) {
	got, err := s.app.Nav.Navigate(ctx, to)
	if err != nil {
		s.term.printf("! %v\n", err)
	}
	if to == navigator.Chat && got != navigator.Chat {
		s.term.printf("! no session yet; use /new to run a key exchange\n")
	}
}
