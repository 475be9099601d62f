package client

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// filterKeys are the query parameters `filter` accepts.
var filterKeys = map[string]bool{
	"name": true, "tags": true, "logic": true, "gender": true,
	"age_group": true, "ethnicity": true, "favorites_only": true,
}

const helpText = `Available commands:
  list [page]          show a page of talents
  filter k=v ...       set filters (name, tags, logic, gender, age_group, ethnicity, favorites_only)
  filter clear         drop all filters
  remote on|off        browse the remote catalog or the local one
  get <id>             show a talent
  fav <id>             toggle the favorite flag
  device               show the device id
  exit`

// ErrExit is returned by Exec when the user asks to leave.
var ErrExit = errors.New("exit")

// Session is the state of an interactive shell.
type Session struct {
	api   *API
	out   io.Writer
	query Query
}

// NewSession creates a Session browsing the local catalog at catalogPath.
func NewSession(api *API, out io.Writer, catalogPath, imagesFolder string) *Session {
	return &Session{
		api: api,
		out: out,
		query: Query{
			Filters:      map[string]string{},
			Page:         1,
			PageSize:     20,
			CatalogPath:  catalogPath,
			ImagesFolder: imagesFolder,
		},
	}
}

// Run reads commands from in until EOF or exit.
func (s *Session) Run(ctx context.Context, in io.Reader) {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(s.out, "talentkeeper> ")
		if !scanner.Scan() {
			return
		}
		err := s.Exec(ctx, scanner.Text())
		if errors.Is(err, ErrExit) {
			fmt.Fprintln(s.out, "Bye")
			return
		}
		if err != nil {
			fmt.Fprintln(s.out, "error:", err)
		}
	}
}

// Exec runs one command line.
func (s *Session) Exec(ctx context.Context, line string) error {
	args := strings.Fields(strings.TrimSpace(line))
	if len(args) == 0 {
		return nil
	}

	switch args[0] {
	case "help":
		fmt.Fprintln(s.out, helpText)
	case "list":
		if len(args) > 1 {
			page, err := strconv.Atoi(args[1])
			if err != nil || page < 1 {
				return fmt.Errorf("invalid page %q", args[1])
			}
			s.query.Page = page
		}
		return s.list(ctx)
	case "filter":
		return s.filter(args[1:])
	case "remote":
		if len(args) != 2 || (args[1] != "on" && args[1] != "off") {
			return errors.New("usage: remote on|off")
		}
		s.query.Remote = args[1] == "on"
		s.query.Page = 1
		fmt.Fprintf(s.out, "Remote catalog: %s\n", args[1])
	case "get":
		if len(args) < 2 {
			return errors.New("usage: get <id>")
		}
		t, err := s.api.Talent(ctx, args[1])
		if err != nil {
			return err
		}
		b, _ := json.MarshalIndent(t, "", "  ")
		fmt.Fprintln(s.out, string(b))
	case "fav":
		if len(args) < 2 {
			return errors.New("usage: fav <id>")
		}
		fav, err := s.api.ToggleFavorite(ctx, args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "%s favorite: %t\n", args[1], fav)
	case "device":
		id, err := s.api.DeviceID(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(s.out, id)
	case "exit", "quit":
		return ErrExit
	default:
		fmt.Fprintln(s.out, "Unknown command. Type 'help' for a list of commands.")
	}
	return nil
}

func (s *Session) filter(args []string) error {
	if len(args) == 1 && args[0] == "clear" {
		s.query.Filters = map[string]string{}
		s.query.Page = 1
		fmt.Fprintln(s.out, "Filters cleared")
		return nil
	}
	if len(args) == 0 {
		keys := make([]string, 0, len(s.query.Filters))
		for k := range s.query.Filters {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(s.out, "%s=%s\n", k, s.query.Filters[k])
		}
		return nil
	}

	for _, kv := range args {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || !filterKeys[k] {
			return fmt.Errorf("invalid filter %q", kv)
		}
		if v == "" {
			delete(s.query.Filters, k)
			continue
		}
		s.query.Filters[k] = v
	}
	s.query.Page = 1
	return nil
}

func (s *Session) list(ctx context.Context) error {
	p, err := s.api.List(ctx, s.query)
	if err != nil {
		return err
	}
	if p.ShowCTA {
		fmt.Fprintln(s.out, "The remote catalog needs an active Patreon membership. Connect via /patreon/authorize.")
		return nil
	}
	for _, t := range p.Talents {
		fav := " "
		if t.IsFavorite {
			fav = "*"
		}
		fmt.Fprintf(s.out, "%s %-32s %s\n", fav, t.ID, t.Name)
	}
	fmt.Fprintf(s.out, "page %d/%d, %d talents (%s)\n", p.CurrentPage, p.TotalPages, p.TotalCount, p.Source)
	return nil
}
