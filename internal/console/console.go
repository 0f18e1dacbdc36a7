// Package console is the line-oriented operator console served over the
// telnet and ssh listeners.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/pixil98/go-satchel/internal/access"
	"github.com/pixil98/go-satchel/internal/display"
	"github.com/pixil98/go-satchel/internal/geom"
	"github.com/pixil98/go-satchel/internal/inventory"
	"github.com/pixil98/go-satchel/internal/item"
	"github.com/pixil98/go-satchel/internal/world"
)

const prompt = "> "

type commandFunc func(ctx context.Context, args []string) (string, error)

type command struct {
	usage       string
	description string
	minArgs     int
	run         commandFunc
}

// Console executes operator commands against the world. Mutations go
// through the regular container operations, so tracked containers
// replicate as usual.
type Console struct {
	world    *world.World
	catalog  item.Catalog
	commands map[string]*command
}

func NewConsole(w *world.World, catalog item.Catalog) *Console {
	c := &Console{world: w, catalog: catalog}
	c.commands = map[string]*command{
		"help":       {usage: "help [command]", description: "list commands or describe one", run: c.help},
		"who":        {usage: "who", description: "list connected participants", run: c.who},
		"containers": {usage: "containers", description: "list every container", run: c.containers},
		"inspect":    {usage: "inspect <container>", description: "show the slots of a container", minArgs: 1, run: c.inspect},
		"give":       {usage: "give <container> <item> <quantity> [slot]", description: "add items to a container", minArgs: 3, run: c.give},
		"take":       {usage: "take <container> <item> <quantity> [slot]", description: "remove items from a container", minArgs: 3, run: c.take},
		"bonus":      {usage: "bonus <container> <count> [hotbar]", description: "grant extra slots", minArgs: 2, run: c.bonus},
		"move":       {usage: "move <participant> <x> <y> <z>", description: "teleport a participant", minArgs: 4, run: c.move},
		"quit":       {usage: "quit", description: "close the console", run: c.quit},
	}
	return c
}

// Exec runs one command line and returns its output.
func (c *Console) Exec(ctx context.Context, line string) (string, error) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return "", nil
	}

	name := strings.ToLower(parts[0])
	cmd, ok := c.commands[name]
	if !ok {
		return "", NewUserError(fmt.Sprintf("Unknown command: %s", parts[0]))
	}

	args := parts[1:]
	if len(args) < cmd.minArgs {
		return "", NewUserError(fmt.Sprintf("Usage: %s", cmd.usage))
	}

	slog.DebugContext(ctx, "console command", "command", name, "args", args)
	return cmd.run(ctx, args)
}

// RunSession reads commands from rw until the operator quits, the
// connection drops or ctx is cancelled.
func (c *Console) RunSession(ctx context.Context, rw io.ReadWriter) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	inputChan := make(chan string)
	inputErrChan := make(chan error, 1)
	go func() {
		inputErrChan <- scanLines(ctx, rw, inputChan)
	}()

	if err := writeLine(rw, "satchel operator console. Type 'help' for commands."); err != nil {
		return err
	}
	if _, err := io.WriteString(rw, prompt); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case line, ok := <-inputChan:
			if !ok {
				return <-inputErrChan
			}

			out, err := c.Exec(ctx, strings.TrimSpace(line))
			var userErr *UserError
			switch {
			case errors.Is(err, ErrQuit):
				return writeLine(rw, "Goodbye!")
			case errors.As(err, &userErr):
				out = userErr.Message
			case err != nil:
				return fmt.Errorf("console command failed: %w", err)
			}

			if out != "" {
				if err := writeLine(rw, display.Wrap(out)); err != nil {
					return err
				}
			}
			if _, err := io.WriteString(rw, prompt); err != nil {
				return err
			}
		}
	}
}

// scanLines sends each line read from r until r is exhausted or ctx ends,
// then closes lines.
func scanLines(ctx context.Context, r io.Reader, lines chan<- string) error {
	defer close(lines)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		select {
		case lines <- scanner.Text():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return scanner.Err()
}

func writeLine(w io.Writer, s string) error {
	_, err := io.WriteString(w, s+"\n")
	return err
}

func (c *Console) help(_ context.Context, args []string) (string, error) {
	if len(args) > 0 {
		cmd, ok := c.commands[strings.ToLower(args[0])]
		if !ok {
			return "", NewUserError(fmt.Sprintf("Command %q is unknown.", args[0]))
		}
		return fmt.Sprintf("%s: %s\nUsage: %s", strings.ToLower(args[0]), cmd.description, cmd.usage), nil
	}

	names := make([]string, 0, len(c.commands))
	for n := range c.commands {
		names = append(names, n)
	}
	slices.Sort(names)
	return "Available commands: " + strings.Join(names, ", "), nil
}

func (c *Console) who(_ context.Context, _ []string) (string, error) {
	var ps []world.Participant
	for _, id := range c.world.Participants() {
		if p, ok := c.world.Participant(id); ok {
			ps = append(ps, p)
		}
	}
	return ExpandTemplate(whoTemplate, ps)
}

func (c *Console) containers(_ context.Context, _ []string) (string, error) {
	return ExpandTemplate(containersTemplate, c.world.Containers())
}

type slotView struct {
	Index         int
	Hotbar        bool
	Empty         bool
	Name          string
	Quantity      uint16
	Instanced     bool
	Durability    int
	MaxDurability int
}

func (c *Console) inspect(_ context.Context, args []string) (string, error) {
	ct, err := c.container(args[0])
	if err != nil {
		return "", err
	}

	var name string
	for _, info := range c.world.Containers() {
		if info.ID == ct.ID() {
			name = info.Name
			break
		}
	}

	snap := ct.Snapshot()
	hotbar := ct.HotbarCount()
	policy, _ := ct.Policy()

	slots := make([]slotView, len(snap.Slots))
	for i, s := range snap.Slots {
		v := slotView{Index: i, Hotbar: i < hotbar, Empty: s.IsEmpty(), Quantity: s.Quantity}
		if !s.IsEmpty() {
			v.Name = c.itemName(s.ID)
		}
		if s.HasInstance() {
			v.Instanced = true
			v.Durability, v.MaxDurability, _ = ct.Durability(i)
		}
		slots[i] = v
	}

	return ExpandTemplate(inspectTemplate, map[string]any{
		"ID":      ct.ID(),
		"Name":    name,
		"Version": snap.Version,
		"Policy":  policy,
		"Slots":   slots,
	})
}

func (c *Console) give(ctx context.Context, args []string) (string, error) {
	ct, id, qty, slot, err := c.itemArgs(args)
	if err != nil {
		return "", err
	}

	ok, remainder := ct.TryAddAsManyAsPossible(ctx, id, qty, slot)
	name := c.itemName(id)
	if !ok && remainder == qty {
		return "", NewUserError(fmt.Sprintf("No room for %s in %s.", name, ct.ID()))
	}

	out := fmt.Sprintf("Gave %d %s to %s.", qty-remainder, name, ct.ID())
	if remainder > 0 {
		out += fmt.Sprintf(" %d did not fit.", remainder)
	}
	return out, nil
}

func (c *Console) take(ctx context.Context, args []string) (string, error) {
	ct, id, qty, slot, err := c.itemArgs(args)
	if err != nil {
		return "", err
	}

	name := c.itemName(id)
	if !ct.RemoveItem(ctx, id, qty, slot) {
		return "", NewUserError(fmt.Sprintf("%s does not hold %d %s there.", ct.ID(), qty, name))
	}
	return fmt.Sprintf("Took %d %s from %s.", qty, name, ct.ID()), nil
}

func (c *Console) bonus(ctx context.Context, args []string) (string, error) {
	ct, err := c.container(args[0])
	if err != nil {
		return "", err
	}

	n, err := strconv.Atoi(args[1])
	if err != nil || n <= 0 {
		return "", NewUserError(fmt.Sprintf("Invalid slot count: %s", args[1]))
	}

	if len(args) > 2 && strings.EqualFold(args[2], "hotbar") {
		ct.GrantBonusHotbarSlots(ctx, n)
		return fmt.Sprintf("Granted %d hotbar slots to %s.", n, ct.ID()), nil
	}
	ct.GrantBonusSlots(ctx, n)
	return fmt.Sprintf("Granted %d slots to %s.", n, ct.ID()), nil
}

func (c *Console) move(ctx context.Context, args []string) (string, error) {
	id, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return "", NewUserError(fmt.Sprintf("Invalid participant: %s", args[0]))
	}

	var coords [3]float64
	for i := range coords {
		coords[i], err = strconv.ParseFloat(args[i+1], 64)
		if err != nil {
			return "", NewUserError(fmt.Sprintf("Invalid coordinate: %s", args[i+1]))
		}
	}

	pos := geom.Vec3{X: coords[0], Y: coords[1], Z: coords[2]}
	if err := c.world.Move(ctx, access.ParticipantID(id), pos); err != nil {
		if errors.Is(err, world.ErrParticipantNotFound) {
			return "", NewUserError(fmt.Sprintf("No participant %d.", id))
		}
		return "", err
	}
	return fmt.Sprintf("Moved %d.", id), nil
}

func (c *Console) quit(_ context.Context, _ []string) (string, error) {
	return "", ErrQuit
}

func (c *Console) container(arg string) (*inventory.Container, error) {
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		return nil, NewUserError(fmt.Sprintf("Invalid container: %s", arg))
	}
	ct, ok := c.world.Container(inventory.ID(id))
	if !ok {
		return nil, NewUserError(fmt.Sprintf("No container %d.", id))
	}
	return ct, nil
}

// itemArgs parses "<container> <item> <quantity> [slot]".
func (c *Console) itemArgs(args []string) (*inventory.Container, item.ID, uint16, *int, error) {
	ct, err := c.container(args[0])
	if err != nil {
		return nil, 0, 0, nil, err
	}

	raw, err := strconv.ParseUint(args[1], 10, 16)
	id := item.ID(raw)
	if err != nil || !id.Valid() {
		return nil, 0, 0, nil, NewUserError(fmt.Sprintf("Invalid item: %s", args[1]))
	}
	if _, ok := c.catalog.Definition(id); !ok {
		return nil, 0, 0, nil, NewUserError(fmt.Sprintf("Unknown item: %s", args[1]))
	}

	qty, err := strconv.ParseUint(args[2], 10, 16)
	if err != nil || qty == 0 {
		return nil, 0, 0, nil, NewUserError(fmt.Sprintf("Invalid quantity: %s", args[2]))
	}

	var slot *int
	if len(args) > 3 {
		s, err := strconv.Atoi(args[3])
		if err != nil || s < 0 || s >= ct.SlotCount() {
			return nil, 0, 0, nil, NewUserError(fmt.Sprintf("Invalid slot: %s", args[3]))
		}
		slot = &s
	}

	return ct, id, uint16(qty), slot, nil
}

func (c *Console) itemName(id item.ID) string {
	if def, ok := c.catalog.Definition(id); ok {
		return def.Name
	}
	return id.String()
}
