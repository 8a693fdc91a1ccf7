package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fruitsalade/docportal/internal/navigator"
	"github.com/fruitsalade/docportal/internal/records"
)

var (
	treeExplorer string
	treeOwner    string
	treeYear     string
	treeMonth    string
	treeDepth    int
)

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print an explorer's hierarchy",
	Long: `tree downloads the records visible to you and prints the folders an
explorer would show, level by level. Filters default to all years and
months so every document appears once.`,
	RunE: runTree,
}

func init() {
	treeCmd.Flags().StringVarP(&treeExplorer, "explorer", "e", navigator.ProfileEmployee, "explorer profile")
	treeCmd.Flags().StringVar(&treeOwner, "owner", "", "employee whose documents to show (single-owner explorers)")
	treeCmd.Flags().StringVar(&treeYear, "year", navigator.All, "year filter")
	treeCmd.Flags().StringVar(&treeMonth, "month", navigator.All, "month filter")
	treeCmd.Flags().IntVar(&treeDepth, "depth", 0, "maximum depth (0 = unlimited)")
}

func runTree(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	g, err := navigator.DefaultProfiles().Get(treeExplorer)
	if err != nil {
		return err
	}
	ix, err := records.NewLoader(c).Revalidate(cmd.Context())
	if err != nil {
		return err
	}

	owner := treeOwner
	if _, _, org := g.Level(navigator.User); !org && owner == "" {
		emps := ix.Employees()
		if len(emps) != 1 {
			return fmt.Errorf("--owner is required when more than one employee is visible")
		}
		owner = emps[0].ID
	}

	st := g.Initial(owner, time.Now())
	st.Filters = navigator.Filters{Year: treeYear, Month: treeMonth}.Normalize()
	printTree(cmd.OutOrStdout(), g, ix, st, treeDepth)
	return nil
}

// printTree writes the hierarchy below st, one indented line per folder,
// employee or document. maxDepth 0 means no limit.
func printTree(w io.Writer, g *navigator.Grammar, ix *records.Index, st navigator.State, maxDepth int) {
	fmt.Fprintln(w, st.Path.Last().Name)
	walk(w, g, ix, st, 1, maxDepth)
}

func walk(w io.Writer, g *navigator.Grammar, ix *records.Index, st navigator.State, depth, maxDepth int) {
	if maxDepth > 0 && depth > maxDepth {
		return
	}
	indent := strings.Repeat("  ", depth)
	c := g.Resolve(ix, st)
	switch c.Kind {
	case navigator.KindFolders:
		for _, l := range c.Labels {
			next := g.Reduce(st, navigator.EnterFolder{ID: l, Type: c.NextType})
			if g.Resolve(ix, next).IsEmpty() {
				continue
			}
			fmt.Fprintf(w, "%s%s/\n", indent, l)
			walk(w, g, ix, next, depth+1, maxDepth)
		}
	case navigator.KindUsers:
		for _, u := range c.Users {
			fmt.Fprintf(w, "%s%s (%s)\n", indent, u.Name, u.ID)
			walk(w, g, ix, g.Reduce(st, navigator.EnterUser{ID: u.ID, Name: u.Name}), depth+1, maxDepth)
		}
	case navigator.KindFiles:
		for _, d := range c.Files {
			fmt.Fprintf(w, "%s%s  %s  [%s]\n", indent, d.Name, d.UploadDate.Format("2006-01-02"), d.ID)
		}
	case navigator.KindError:
		fmt.Fprintf(w, "%s! %s\n", indent, c.Reason)
	}
}
