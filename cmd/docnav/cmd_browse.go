package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fruitsalade/docportal/internal/navigator"
	"github.com/fruitsalade/docportal/pkg/client"
	"github.com/fruitsalade/docportal/pkg/models"
	"github.com/fruitsalade/docportal/pkg/protocol"
)

var (
	browseExplorer string
	browseUser     string
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Navigate documents interactively",
	Long: `browse opens a navigator session on the server and reads commands
from standard input:

  ls                      show the current folder
  cd <folder>             open a folder (cd .. goes back, cd / to the root)
  user <id>               open an employee
  jump <n>                go to breadcrumb n (0 is the root)
  filter <year> <month>   set the year and month filters ("all" clears)
  search [query]          search; without a query the search is cleared
  view|download <doc-id>  request a document, then enter the PIN
  delete <doc-id>         delete a document
  pin <1234>              submit the document PIN
  cancel                  discard the pending request
  quit`,
	RunE: runBrowse,
}

func init() {
	browseCmd.Flags().StringVarP(&browseExplorer, "explorer", "e", navigator.ProfileEmployee, "explorer profile")
	browseCmd.Flags().StringVar(&browseUser, "user", "", "employee to open (admins)")
}

// command is one parsed input line. Exactly one of the groups is set.
type command struct {
	quit   bool
	show   bool
	cancel bool
	event  *protocol.NavigatorEvent
	action models.Action
	docID  string
	pin    string
}

func parseCommand(line string) (command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return command{show: true}, nil
	}
	verb, rest := fields[0], strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), fields[0]))
	switch verb {
	case "quit", "exit", "q":
		return command{quit: true}, nil
	case "ls":
		return command{show: true}, nil
	case "cancel":
		return command{cancel: true}, nil
	case "cd":
		switch rest {
		case "":
			return command{}, fmt.Errorf("cd needs a folder")
		case "..":
			return command{event: &protocol.NavigatorEvent{Type: "back"}}, nil
		case "/":
			return command{event: &protocol.NavigatorEvent{Type: "reset"}}, nil
		}
		return command{event: &protocol.NavigatorEvent{Type: "enter_folder", ID: rest}}, nil
	case "user":
		if rest == "" {
			return command{}, fmt.Errorf("user needs an employee id")
		}
		return command{event: &protocol.NavigatorEvent{Type: "enter_user", ID: rest}}, nil
	case "jump":
		n, err := strconv.Atoi(rest)
		if err != nil {
			return command{}, fmt.Errorf("jump needs a breadcrumb number")
		}
		return command{event: &protocol.NavigatorEvent{Type: "jump_to", Index: n}}, nil
	case "filter":
		if len(fields) != 3 {
			return command{}, fmt.Errorf("filter needs a year and a month")
		}
		return command{event: &protocol.NavigatorEvent{Type: "set_filters", Year: fields[1], Month: fields[2]}}, nil
	case "search":
		return command{event: &protocol.NavigatorEvent{Type: "search", Query: rest}}, nil
	case "view", "download", "delete":
		if len(fields) != 2 {
			return command{}, fmt.Errorf("%s needs a document id", verb)
		}
		return command{action: models.Action(verb), docID: fields[1]}, nil
	case "pin":
		if len(fields) != 2 {
			return command{}, fmt.Errorf("pin needs the 4-digit PIN")
		}
		return command{pin: fields[1]}, nil
	}
	return command{}, fmt.Errorf("unknown command %q", verb)
}

func runBrowse(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	sess, resp, err := c.OpenSession(ctx, browseExplorer, browseUser)
	if err != nil {
		return err
	}
	defer sess.Close(context.Background())

	out := cmd.OutOrStdout()
	renderView(out, resp)
	return repl(ctx, sess, cmd.InOrStdin(), out)
}

func repl(ctx context.Context, sess *client.Session, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		c, err := parseCommand(scanner.Text())
		if err != nil {
			fmt.Fprintln(out, err)
			continue
		}
		if c.quit {
			return nil
		}
		if err := execute(ctx, sess, c, out); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintln(out, describeError(err))
		}
	}
}

func execute(ctx context.Context, sess *client.Session, c command, out io.Writer) error {
	switch {
	case c.show:
		resp, err := sess.View(ctx)
		if err != nil {
			return err
		}
		renderView(out, resp)
	case c.event != nil:
		resp, err := sess.Send(ctx, *c.event)
		if err != nil {
			return err
		}
		if resp.View.State.Leave {
			fmt.Fprintln(out, "Already at the top. Type quit to leave.")
		}
		renderView(out, resp)
	case c.cancel:
		if _, err := sess.Cancel(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "Cancelled.")
	case c.action != "":
		resp, err := sess.Request(ctx, c.action, c.docID)
		if err != nil {
			return err
		}
		if resp.Deleted {
			fmt.Fprintf(out, "Deleted %s.\n", c.docID)
			return nil
		}
		if resp.Pin.Phase == "pending_pin" {
			// Refresh the lock state before asking for the PIN.
			if resp, err = sess.OpenPin(ctx); err != nil {
				return err
			}
		}
		renderPin(out, resp.Pin)
	case c.pin != "":
		resp, err := sess.SubmitPin(ctx, c.pin)
		if err != nil {
			return err
		}
		renderPin(out, resp.Pin)
	}
	return nil
}

// describeError turns PIN gate answers into prompts.
func describeError(err error) string {
	ae, ok := client.AsAPIError(err)
	if !ok {
		return "error: " + err.Error()
	}
	switch {
	case ae.Response.Locked && ae.Response.LockedUntil != nil:
		return fmt.Sprintf("PIN locked until %s.", ae.Response.LockedUntil.Local().Format("15:04"))
	case ae.Response.AttemptsLeft != nil:
		return fmt.Sprintf("Incorrect PIN. %d attempts left.", *ae.Response.AttemptsLeft)
	}
	return ae.Response.Error
}

func renderView(w io.Writer, resp *protocol.SessionResponse) {
	v := resp.View
	crumbs := make([]string, len(v.State.Path))
	for i, s := range v.State.Path {
		crumbs[i] = fmt.Sprintf("[%d] %s", i, s.Name)
	}
	fmt.Fprintln(w, strings.Join(crumbs, " / "))

	line := fmt.Sprintf("year: %s  month: %s", v.State.Filters.Year, v.State.Filters.Month)
	if v.State.Query != "" {
		line += fmt.Sprintf("  search: %q", v.State.Query)
	}
	fmt.Fprintln(w, line)

	c := v.Content
	switch c.Kind {
	case navigator.KindFolders:
		for _, l := range c.Labels {
			fmt.Fprintf(w, "  %s/\n", l)
		}
	case navigator.KindUsers:
		for _, u := range c.Users {
			fmt.Fprintf(w, "  %-24s %s\n", u.Name, u.ID)
		}
	case navigator.KindFiles:
		for _, d := range c.Files {
			fmt.Fprintf(w, "  %-32s %s  %s\n", d.Name, d.UploadDate.Format("2006-01-02"), d.ID)
		}
	}
	if v.IsEmpty {
		reason := c.Reason
		if reason == "" {
			reason = "Nothing here"
		}
		fmt.Fprintf(w, "  (%s)\n", reason)
	}
}

func renderPin(w io.Writer, p protocol.PinFlowState) {
	switch p.Phase {
	case "pending_pin":
		name := ""
		if p.Document != nil {
			name = " " + p.Document.Name
		}
		fmt.Fprintf(w, "Enter your document PIN to %s%s: pin <1234>\n", p.Action, name)
	case "locked":
		fmt.Fprintf(w, "PIN locked. Try again in %s.\n", p.Countdown)
	default:
		if p.URL != "" {
			fmt.Fprintln(w, p.URL)
		} else {
			fmt.Fprintln(w, "Nothing pending.")
		}
	}
}
