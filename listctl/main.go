package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/docopt/docopt-go"
	"github.com/goccy/go-json"

	"nestlist/client"
	"nestlist/internal/tree"
)

const ListCtlVersion = "0.1.0"

const usage = `Nested list control.

Containers are a list id, "list-<id>" or "roots". Nodes in a container are
addressed by key: "item-<id>" or "sublist-<id>".

The server url defaults to $NESTLIST_URL, then http://localhost:8080. The
session token is read from $NESTLIST_TOKEN, then from the file written by
login.

Usage:
    listctl register [--url=<url>] <username> <email> <password>
    listctl login [--url=<url>] <username> <password>
    listctl lists [--url=<url>]
    listctl show [--url=<url>] <container>
    listctl tree [--url=<url>] <list>
    listctl add-item [--url=<url>] <list> <name>
    listctl add-list [--url=<url>] <container> <name>
    listctl toggle [--url=<url>] <list> <item>
    listctl rename [--url=<url>] <container> <key> <name>
    listctl rm [--url=<url>] <container> <key>
    listctl move [--url=<url>] [--index=<n>] <node> [<parent>]
    listctl reorder [--url=<url>] <list> (items|children) <id>...
    listctl drag [--url=<url>] [--atomic] <key> <from> <over> <to>
    listctl share [--url=<url>] [--write] <list> <username>
    listctl unshare [--url=<url>] <list> <user_id>
    listctl watch [--url=<url>] <list>
    listctl -h | --help
    listctl --version

Options:
    -h --help       Show this screen.
    --version       Show version.
    --url=<url>     Server base url.
    --index=<n>     Place the node at this index among its new siblings.
    --atomic        Send a cross-container drop as one placement call.
    --write         Grant write access instead of read.`

func main() {
	opts, err := docopt.ParseArgs(usage, os.Args[1:], ListCtlVersion)
	if err != nil {
		fatal(err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmds := []struct {
		name string
		run  func(*cli, context.Context) error
	}{
		{"register", (*cli).register},
		{"login", (*cli).login},
		{"lists", (*cli).lists},
		{"show", (*cli).show},
		{"tree", (*cli).tree},
		{"add-item", (*cli).addItem},
		{"add-list", (*cli).addList},
		{"toggle", (*cli).toggle},
		{"rename", (*cli).rename},
		{"rm", (*cli).rm},
		{"move", (*cli).move},
		{"reorder", (*cli).reorder},
		{"drag", (*cli).drag},
		{"share", (*cli).share},
		{"unshare", (*cli).unshare},
		{"watch", (*cli).watch},
	}
	c := newCLI(opts)
	for _, cmd := range cmds {
		if on, _ := opts.Bool(cmd.name); on {
			if err := cmd.run(c, ctx); err != nil {
				fatal(err)
			}
			return
		}
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "listctl: %v\n", err)
	os.Exit(1)
}

type cli struct {
	opts  docopt.Opts
	api   *client.HTTP
	log   *slog.Logger
	notes *client.Recorder
}

func newCLI(opts docopt.Opts) *cli {
	base, _ := opts.String("--url")
	if base == "" {
		base = os.Getenv("NESTLIST_URL")
	}
	if base == "" {
		base = "http://localhost:8080"
	}
	c := &cli{
		opts:  opts,
		api:   client.NewHTTP(base, nil),
		log:   slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})),
		notes: &client.Recorder{},
	}
	c.api.SetToken(loadToken())
	return c
}

func tokenPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "nestlist", "token")
}

func loadToken() string {
	if t := os.Getenv("NESTLIST_TOKEN"); t != "" {
		return t
	}
	b, err := os.ReadFile(tokenPath())
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}

func saveToken(token string) error {
	p := tokenPath()
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return err
	}
	return os.WriteFile(p, []byte(token+"\n"), 0o600)
}

func (c *cli) str(key string) string {
	s, _ := c.opts.String(key)
	return s
}

func (c *cli) id(key string) (int64, error) {
	v, err := strconv.ParseInt(c.str(key), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: not an id: %q", key, c.str(key))
	}
	return v, nil
}

// container accepts a bare id as well as a container key.
func (c *cli) container(key string) (int64, error) {
	s := c.str(key)
	if v, err := strconv.ParseInt(s, 10, 64); err == nil && v > 0 {
		return v, nil
	}
	return client.ParseContainerKey(s)
}

// coordinator returns a synchronous coordinator with the given containers
// loaded from the server.
func (c *cli) coordinator(ctx context.Context, atomic bool, ids ...int64) (*client.Coordinator, map[int64]*client.Container, error) {
	reg := client.NewRegistry()
	boxes := map[int64]*client.Container{}
	for _, id := range ids {
		box, err := c.load(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		boxes[id] = box
		reg.Register(id, box.Ops())
	}
	co := client.NewCoordinator(c.api, reg, client.Options{
		Scheduler: client.Inline{},
		Notifier:  c.notes,
		Logger:    c.log,
		Atomic:    atomic,
		Timeout:   30 * time.Second,
	})
	return co, boxes, nil
}

func (c *cli) load(ctx context.Context, id int64) (*client.Container, error) {
	if id == client.Roots {
		lists, err := c.api.Lists(ctx)
		if err != nil {
			return nil, err
		}
		box := &client.Container{ID: client.Roots}
		for _, l := range lists {
			box.Children = append(box.Children, client.ListFromSummary(l))
		}
		return box, nil
	}
	d, err := c.api.List(ctx, id)
	if err != nil {
		return nil, err
	}
	return client.NewContainer(d), nil
}

// settle reports the first failure notification as an error.
func (c *cli) settle() error {
	if msgs := c.notes.Messages(); len(msgs) > 0 {
		return errors.New(strings.Join(msgs, "; "))
	}
	return nil
}

func printContainer(box *client.Container) {
	if box.ID == client.Roots {
		fmt.Println("roots")
	} else {
		fmt.Printf("list-%d\n", box.ID)
	}
	for _, l := range box.Children {
		fmt.Printf("  + %s  (sublist-%d, %d/%d done)\n", l.Name, l.ID, l.CompletedCount, l.ItemCount)
	}
	for _, it := range box.Items {
		mark := " "
		if it.IsChecked {
			mark = "x"
		}
		fmt.Printf("  [%s] %s  (item-%d)\n", mark, it.Name, it.ID)
	}
}

func printBranch(b *tree.Branch, depth int) {
	indent := strings.Repeat("  ", depth)
	fmt.Printf("%s%s  (list-%d)\n", indent, b.Name, b.ID)
	for _, it := range b.Items {
		mark := " "
		if it.IsChecked {
			mark = "x"
		}
		fmt.Printf("%s  [%s] %s  (item-%d)\n", indent, mark, it.Name, it.ID)
	}
	for _, child := range b.Children {
		printBranch(child, depth+1)
	}
}

func (c *cli) register(ctx context.Context) error {
	u, err := c.api.Register(ctx, c.str("<username>"), c.str("<email>"), c.str("<password>"))
	if err != nil {
		return err
	}
	fmt.Printf("registered %s (user %d)\n", u.Username, u.ID)
	return saveToken(c.api.Token())
}

func (c *cli) login(ctx context.Context) error {
	u, err := c.api.Login(ctx, c.str("<username>"), c.str("<password>"))
	if err != nil {
		return err
	}
	fmt.Printf("logged in as %s (user %d)\n", u.Username, u.ID)
	return saveToken(c.api.Token())
}

func (c *cli) lists(ctx context.Context) error {
	box, err := c.load(ctx, client.Roots)
	if err != nil {
		return err
	}
	printContainer(box)
	return nil
}

func (c *cli) show(ctx context.Context) error {
	id, err := c.container("<container>")
	if err != nil {
		return err
	}
	box, err := c.load(ctx, id)
	if err != nil {
		return err
	}
	printContainer(box)
	return nil
}

func (c *cli) tree(ctx context.Context) error {
	id, err := c.container("<list>")
	if err != nil {
		return err
	}
	b, err := c.api.Tree(ctx, id)
	if err != nil {
		return err
	}
	printBranch(b, 0)
	return nil
}

func (c *cli) addItem(ctx context.Context) error {
	list, err := c.container("<list>")
	if err != nil {
		return err
	}
	co, boxes, err := c.coordinator(ctx, false, list)
	if err != nil {
		return err
	}
	if _, err := co.CreateItem(list, c.str("<name>")); err != nil {
		return err
	}
	printContainer(boxes[list])
	return c.settle()
}

func (c *cli) addList(ctx context.Context) error {
	parent, err := c.container("<container>")
	if err != nil {
		return err
	}
	co, boxes, err := c.coordinator(ctx, false, parent)
	if err != nil {
		return err
	}
	if _, err := co.CreateList(parent, c.str("<name>")); err != nil {
		return err
	}
	printContainer(boxes[parent])
	return c.settle()
}

func (c *cli) toggle(ctx context.Context) error {
	list, err := c.container("<list>")
	if err != nil {
		return err
	}
	item, err := c.id("<item>")
	if err != nil {
		return err
	}
	co, boxes, err := c.coordinator(ctx, false, list)
	if err != nil {
		return err
	}
	if err := co.ToggleItem(list, item); err != nil {
		return err
	}
	printContainer(boxes[list])
	return c.settle()
}

func (c *cli) rename(ctx context.Context) error {
	container, err := c.container("<container>")
	if err != nil {
		return err
	}
	kind, id, err := client.ParseKey(c.str("<key>"))
	if err != nil {
		return err
	}
	co, boxes, err := c.coordinator(ctx, false, container)
	if err != nil {
		return err
	}
	if kind == tree.KindItem {
		err = co.RenameItem(container, id, c.str("<name>"))
	} else {
		err = co.RenameList(container, id, c.str("<name>"))
	}
	if err != nil {
		return err
	}
	printContainer(boxes[container])
	return c.settle()
}

func (c *cli) rm(ctx context.Context) error {
	container, err := c.container("<container>")
	if err != nil {
		return err
	}
	kind, id, err := client.ParseKey(c.str("<key>"))
	if err != nil {
		return err
	}
	co, boxes, err := c.coordinator(ctx, false, container)
	if err != nil {
		return err
	}
	if kind == tree.KindItem {
		err = co.DeleteItem(container, id)
	} else {
		err = co.DeleteList(container, id)
	}
	if err != nil {
		return err
	}
	printContainer(boxes[container])
	return c.settle()
}

func (c *cli) move(ctx context.Context) error {
	node, err := c.id("<node>")
	if err != nil {
		return err
	}
	var parent *int64
	if c.str("<parent>") != "" {
		p, err := c.container("<parent>")
		if err != nil {
			return err
		}
		if p != client.Roots {
			parent = &p
		}
	}
	var n tree.Node
	if c.str("--index") != "" {
		index, err := strconv.Atoi(c.str("--index"))
		if err != nil {
			return fmt.Errorf("--index: %w", err)
		}
		n, err = c.api.PlaceNode(ctx, node, parent, index)
		if err != nil {
			return err
		}
	} else if n, err = c.api.MoveNode(ctx, node, parent); err != nil {
		return err
	}
	where := "roots"
	if n.ParentID != nil {
		where = fmt.Sprintf("list-%d", *n.ParentID)
	}
	fmt.Printf("%s %d is now in %s\n", n.Kind, n.ID, where)
	return nil
}

func (c *cli) reorder(ctx context.Context) error {
	list, err := c.container("<list>")
	if err != nil {
		return err
	}
	kind := tree.KindItem
	if on, _ := c.opts.Bool("children"); on {
		kind = tree.KindList
	}
	raw, _ := c.opts["<id>"].([]string)
	ids := make([]int64, 0, len(raw))
	for _, s := range raw {
		v, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimPrefix(s, "item-"), "sublist-"), 10, 64)
		if err != nil {
			return fmt.Errorf("not an id: %q", s)
		}
		ids = append(ids, v)
	}
	if err := c.api.Reorder(ctx, list, kind, ids); err != nil {
		return err
	}
	return c.show(ctx)
}

func (c *cli) drag(ctx context.Context) error {
	from, err := c.container("<from>")
	if err != nil {
		return err
	}
	to, err := c.container("<to>")
	if err != nil {
		return err
	}
	atomic, _ := c.opts.Bool("--atomic")
	load := []int64{from}
	if to != from {
		load = append(load, to)
	}
	co, boxes, err := c.coordinator(ctx, atomic, load...)
	if err != nil {
		return err
	}
	over := c.str("<over>")
	if _, err := client.ParseContainerKey(over); err != nil {
		if _, _, kerr := client.ParseKey(over); kerr != nil {
			over = client.ContainerKey(to)
		}
	}
	kind := co.HandleDrop(client.DropEvent{
		Active:          c.str("<key>"),
		Over:            over,
		ActiveContainer: client.ContainerKey(from),
		OverContainer:   client.ContainerKey(to),
	})
	fmt.Printf("drop: %s\n", kind)
	for _, id := range load {
		printContainer(boxes[id])
	}
	return c.settle()
}

func (c *cli) share(ctx context.Context) error {
	list, err := c.container("<list>")
	if err != nil {
		return err
	}
	perm := "read"
	if on, _ := c.opts.Bool("--write"); on {
		perm = "write"
	}
	m, err := c.api.Share(ctx, list, c.str("<username>"), perm)
	if err != nil {
		return err
	}
	fmt.Printf("shared list-%d with %s (%s)\n", list, m.Username, m.Permission)
	return nil
}

func (c *cli) unshare(ctx context.Context) error {
	list, err := c.container("<list>")
	if err != nil {
		return err
	}
	user, err := c.id("<user_id>")
	if err != nil {
		return err
	}
	return c.api.Unshare(ctx, list, user)
}

func (c *cli) watch(ctx context.Context) error {
	list, err := c.container("<list>")
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	err = c.api.Watch(ctx, list, func(ev client.Event) {
		_ = enc.Encode(ev)
	})
	if ctx.Err() != nil {
		return nil
	}
	return err
}
