// Package interactive provides the interactive command-line interface
// for the RDM controller.
package interactive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/rdm-protocol/rdm-go/pkg/discovery"
	"github.com/rdm-protocol/rdm-go/pkg/dnssd"
	"github.com/rdm-protocol/rdm-go/pkg/interaction"
	"github.com/rdm-protocol/rdm-go/pkg/uid"
	"github.com/rdm-protocol/rdm-go/pkg/wire"
)

// ControllerConfig provides configuration information to the interactive
// controller. This interface allows the interactive layer to access settings
// without depending on the main package's config structure.
type ControllerConfig interface {
	// GatewayName returns the display name for this controller.
	GatewayName() string

	// Scope returns the E1.33 scope the controller advertises under.
	Scope() string
}

// Controller handles interactive mode for rdm-controller.
type Controller struct {
	port   *interaction.Port
	config ControllerConfig
	adv    *dnssd.Advertiser
	rl     *readline.Instance

	// Results of the most recent discovery run, sorted by UID.
	devices []discovery.Device
}

// New creates a new interactive controller handler. adv may be nil when the
// controller is not advertising itself.
func New(port *interaction.Port, cfg ControllerConfig, adv *dnssd.Advertiser) (*Controller, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "rdm> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	return &Controller{
		port:   port,
		config: cfg,
		adv:    adv,
		rl:     rl,
	}, nil
}

// Stdout returns a writer that properly coordinates with the readline input.
// Use this for log output to avoid interfering with the command prompt.
func (c *Controller) Stdout() io.Writer {
	return c.rl.Stdout()
}

// Stderr returns a writer that properly coordinates with the readline input.
func (c *Controller) Stderr() io.Writer {
	return c.rl.Stderr()
}

// Run starts the interactive command loop.
func (c *Controller) Run(ctx context.Context, cancel context.CancelFunc) {
	defer c.rl.Close()

	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			// EOF or interrupt
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			cancel()
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			c.printHelp()

		case "discover", "d":
			c.cmdDiscover(ctx)

		case "list", "ls", "devices":
			c.cmdDevices()

		case "info", "i":
			c.cmdInfo(args)

		case "params", "p":
			c.cmdParams(args)

		case "label":
			c.cmdLabel(args)

		case "address", "addr":
			c.cmdAddress(args)

		case "identify", "id":
			c.cmdIdentify(args)

		case "mute":
			c.cmdMute(args, true)

		case "unmute":
			c.cmdMute(args, false)

		case "status":
			c.cmdStatus()

		case "quit", "exit", "q":
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			cancel()
			return

		default:
			fmt.Fprintf(c.rl.Stdout(), "Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

func (c *Controller) printHelp() {
	fmt.Fprintln(c.rl.Stdout(), `
RDM Controller Commands:
  Discovery:
    discover                 - Run full discovery on the bus
    list                     - List discovered devices
    mute <uid>               - Mute a device (or 'all')
    unmute <uid>             - Un-mute a device (or 'all')

  Device Access:
    info <uid>               - Show device info and labels
    params <uid>             - List supported parameters
    label <uid> [text]       - Get or set the device label
    address <uid> [n]        - Get or set the DMX start address (1-512)
    identify <uid> on|off    - Switch the identify indicator

  General:
    status                   - Show controller status
    help                     - Show this help
    quit                     - Exit controller

  UIDs are written manufacturer:device, e.g. 05e0:12345678.
  A unique suffix of a discovered UID is accepted as shorthand.`)
}

// cmdDiscover handles the discover command.
func (c *Controller) cmdDiscover(ctx context.Context) {
	fmt.Fprintln(c.rl.Stdout(), "Discovering devices...")

	start := time.Now()
	devices, stats, err := discovery.Discover(ctx, discovery.Config{Port: c.port})
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Discovery error: %v\n", err)
		return
	}

	c.devices = devices
	if c.adv != nil {
		if err := c.adv.SetDeviceCount(len(devices)); err != nil {
			fmt.Fprintf(c.rl.Stdout(), "Warning: failed to update advertisement: %v\n", err)
		}
	}

	fmt.Fprintf(c.rl.Stdout(), "Found %d device(s) in %s (%d probes, %d collisions)\n",
		len(devices), time.Since(start).Round(time.Millisecond), stats.Probes, stats.Collisions)
	for _, d := range devices {
		c.printDevice(d)
	}
}

// cmdDevices handles the list command.
func (c *Controller) cmdDevices() {
	if len(c.devices) == 0 {
		fmt.Fprintln(c.rl.Stdout(), "No devices discovered (run 'discover' first)")
		return
	}

	fmt.Fprintf(c.rl.Stdout(), "\nDiscovered Devices (%d):\n", len(c.devices))
	fmt.Fprintln(c.rl.Stdout(), "-------------------------------------------")
	for _, d := range c.devices {
		c.printDevice(d)
	}
}

func (c *Controller) printDevice(d discovery.Device) {
	fmt.Fprintf(c.rl.Stdout(), "  %s", d.UID)
	if !d.BindingUID.IsNull() && !d.BindingUID.Equal(d.UID) {
		fmt.Fprintf(c.rl.Stdout(), "  (bound to %s)", d.BindingUID)
	}
	if d.ControlField&interaction.ControlSubDevice != 0 {
		fmt.Fprint(c.rl.Stdout(), "  [sub-devices]")
	}
	if d.ControlField&interaction.ControlManagedProxy != 0 {
		fmt.Fprint(c.rl.Stdout(), "  [proxy]")
	}
	fmt.Fprintln(c.rl.Stdout())
}

// cmdInfo handles the info command.
func (c *Controller) cmdInfo(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: info <uid>")
		return
	}

	dest, ok := c.resolveUID(args[0])
	if !ok {
		return
	}

	err := c.withOp(func(op *interaction.Op) error {
		info, ack, err := op.GetDeviceInfo(dest, wire.SubDeviceRoot)
		if err != nil {
			return err
		}
		if err := ack.Err(); err != nil {
			return err
		}

		fmt.Fprintf(c.rl.Stdout(), "\nDevice: %s\n", dest)
		fmt.Fprintln(c.rl.Stdout(), "-------------------------------------------")
		fmt.Fprintf(c.rl.Stdout(), "  Model ID:       0x%04x\n", info.ModelID)
		fmt.Fprintf(c.rl.Stdout(), "  Category:       0x%04x\n", info.ProductCategory)
		fmt.Fprintf(c.rl.Stdout(), "  Software:       0x%08x\n", info.SoftwareVersionID)
		fmt.Fprintf(c.rl.Stdout(), "  Footprint:      %d\n", info.Footprint)
		fmt.Fprintf(c.rl.Stdout(), "  Personality:    %d of %d\n", info.CurrentPersonality, info.PersonalityCount)
		if info.Footprint > 0 {
			fmt.Fprintf(c.rl.Stdout(), "  Start Address:  %d\n", info.StartAddress)
		}
		fmt.Fprintf(c.rl.Stdout(), "  Sub-Devices:    %d\n", info.SubDeviceCount)
		fmt.Fprintf(c.rl.Stdout(), "  Sensors:        %d\n", info.SensorCount)
		fmt.Fprintf(c.rl.Stdout(), "  Queued Msgs:    %d\n", ack.MessageCount)

		if label, ack, err := op.GetSoftwareVersionLabel(dest, wire.SubDeviceRoot); err == nil && ack.OK() {
			fmt.Fprintf(c.rl.Stdout(), "  Version:        %s\n", label)
		}
		if label, ack, err := op.GetDeviceLabel(dest, wire.SubDeviceRoot); err == nil && ack.OK() {
			fmt.Fprintf(c.rl.Stdout(), "  Label:          %s\n", label)
		}
		fmt.Fprintln(c.rl.Stdout())
		return nil
	})
	if err != nil {
		c.printError(err)
	}
}

// cmdParams handles the params command.
func (c *Controller) cmdParams(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: params <uid>")
		return
	}

	dest, ok := c.resolveUID(args[0])
	if !ok {
		return
	}

	err := c.withOp(func(op *interaction.Op) error {
		pids, ack, err := op.GetSupportedParameters(dest, wire.SubDeviceRoot)
		if err != nil {
			return err
		}
		if err := ack.Err(); err != nil {
			return err
		}

		if len(pids) == 0 {
			fmt.Fprintln(c.rl.Stdout(), "No additional parameters beyond the required set")
			return nil
		}

		sort.Slice(pids, func(i, j int) bool { return pids[i] < pids[j] })
		fmt.Fprintf(c.rl.Stdout(), "Supported parameters (%d):\n", len(pids))
		for _, pid := range pids {
			fmt.Fprintf(c.rl.Stdout(), "  0x%04x\n", uint16(pid))
		}
		return nil
	})
	if err != nil {
		c.printError(err)
	}
}

// cmdLabel handles the label command. With one argument it reads the label,
// with more it joins them and writes.
func (c *Controller) cmdLabel(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: label <uid> [text]")
		return
	}

	dest, ok := c.resolveUID(args[0])
	if !ok {
		return
	}

	err := c.withOp(func(op *interaction.Op) error {
		if len(args) == 1 {
			label, ack, err := op.GetDeviceLabel(dest, wire.SubDeviceRoot)
			if err != nil {
				return err
			}
			if err := ack.Err(); err != nil {
				return err
			}
			fmt.Fprintf(c.rl.Stdout(), "%q\n", label)
			return nil
		}

		label := strings.Trim(strings.Join(args[1:], " "), "\"'")
		ack, err := op.SetDeviceLabel(dest, wire.SubDeviceRoot, label)
		if err != nil {
			return err
		}
		if err := ack.Err(); err != nil {
			return err
		}
		fmt.Fprintln(c.rl.Stdout(), "OK")
		return nil
	})
	if err != nil {
		c.printError(err)
	}
}

// cmdAddress handles the address command.
func (c *Controller) cmdAddress(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: address <uid> [1-512]")
		return
	}

	dest, ok := c.resolveUID(args[0])
	if !ok {
		return
	}

	err := c.withOp(func(op *interaction.Op) error {
		if len(args) == 1 {
			addr, ack, err := op.GetDMXStartAddress(dest, wire.SubDeviceRoot)
			if err != nil {
				return err
			}
			if err := ack.Err(); err != nil {
				return err
			}
			fmt.Fprintf(c.rl.Stdout(), "DMX start address: %d\n", addr)
			return nil
		}

		addr, err := strconv.ParseUint(args[1], 10, 16)
		if err != nil {
			fmt.Fprintf(c.rl.Stdout(), "Invalid address: %v\n", err)
			return nil
		}
		ack, err := op.SetDMXStartAddress(dest, wire.SubDeviceRoot, uint16(addr))
		if err != nil {
			return err
		}
		if err := ack.Err(); err != nil {
			return err
		}
		fmt.Fprintln(c.rl.Stdout(), "OK")
		return nil
	})
	if err != nil {
		c.printError(err)
	}
}

// cmdIdentify handles the identify command.
func (c *Controller) cmdIdentify(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: identify <uid> on|off")
		return
	}

	dest, ok := c.resolveUID(args[0])
	if !ok {
		return
	}

	var on bool
	switch strings.ToLower(args[1]) {
	case "on", "1", "true":
		on = true
	case "off", "0", "false":
		on = false
	default:
		fmt.Fprintf(c.rl.Stdout(), "Invalid state: %s (use on or off)\n", args[1])
		return
	}

	err := c.withOp(func(op *interaction.Op) error {
		ack, err := op.SetIdentify(dest, wire.SubDeviceRoot, on)
		if err != nil {
			return err
		}
		if err := ack.Err(); err != nil {
			return err
		}
		fmt.Fprintln(c.rl.Stdout(), "OK")
		return nil
	})
	if err != nil {
		c.printError(err)
	}
}

// cmdMute handles the mute and unmute commands.
func (c *Controller) cmdMute(args []string, mute bool) {
	verb := "mute"
	if !mute {
		verb = "unmute"
	}
	if len(args) < 1 {
		fmt.Fprintf(c.rl.Stdout(), "Usage: %s <uid>|all\n", verb)
		return
	}

	var dest uid.UID
	if strings.EqualFold(args[0], "all") {
		dest = uid.BroadcastAll
	} else {
		var ok bool
		dest, ok = c.resolveUID(args[0])
		if !ok {
			return
		}
	}

	err := c.withOp(func(op *interaction.Op) error {
		var ack *interaction.Ack
		var err error
		if mute {
			_, ack, err = op.Mute(dest)
		} else {
			_, ack, err = op.UnMute(dest)
		}
		if err != nil {
			return err
		}
		// Broadcast mutes are answered by silence.
		if !dest.IsBroadcast() {
			if err := ack.Err(); err != nil {
				return err
			}
		}
		fmt.Fprintln(c.rl.Stdout(), "OK")
		return nil
	})
	if err != nil {
		c.printError(err)
	}
}

// cmdStatus handles the status command.
func (c *Controller) cmdStatus() {
	fmt.Fprintln(c.rl.Stdout(), "\nController Status")
	fmt.Fprintln(c.rl.Stdout(), "-------------------------------------------")
	fmt.Fprintf(c.rl.Stdout(), "  Name:               %s\n", c.config.GatewayName())
	fmt.Fprintf(c.rl.Stdout(), "  Scope:              %s\n", c.config.Scope())
	fmt.Fprintf(c.rl.Stdout(), "  Controller UID:     %s\n", c.port.UID())
	fmt.Fprintf(c.rl.Stdout(), "  Discovered Devices: %d\n", len(c.devices))
	advertising := "no"
	if c.adv != nil {
		advertising = "yes"
	}
	fmt.Fprintf(c.rl.Stdout(), "  Advertising:        %s\n", advertising)
	fmt.Fprintln(c.rl.Stdout())
}

// withOp acquires the port for one transaction sequence and releases it.
func (c *Controller) withOp(fn func(op *interaction.Op) error) error {
	op, err := c.port.Begin()
	if err != nil {
		return err
	}
	defer op.End()
	return fn(op)
}

// resolveUID parses a full UID, falling back to a unique suffix match
// against the discovered device list.
func (c *Controller) resolveUID(s string) (uid.UID, bool) {
	if u, err := uid.Parse(s); err == nil {
		return u, true
	}

	var matches []uid.UID
	needle := strings.ToLower(s)
	for _, d := range c.devices {
		if strings.Contains(d.UID.String(), needle) {
			matches = append(matches, d.UID)
		}
	}

	switch len(matches) {
	case 1:
		return matches[0], true
	case 0:
		fmt.Fprintf(c.rl.Stdout(), "Device not found: %s\n", s)
	default:
		fmt.Fprintf(c.rl.Stdout(), "Ambiguous UID %q matches %d devices\n", s, len(matches))
	}
	return uid.UID{}, false
}

// printError maps transaction errors to readable output.
func (c *Controller) printError(err error) {
	switch {
	case errors.Is(err, interaction.ErrNoResponse):
		fmt.Fprintln(c.rl.Stdout(), "No response from device")
	case errors.Is(err, interaction.ErrNack):
		fmt.Fprintf(c.rl.Stdout(), "Request refused: %v\n", err)
	case errors.Is(err, interaction.ErrAckTimer):
		fmt.Fprintf(c.rl.Stdout(), "Device deferred the request: %v\n", err)
	case errors.Is(err, interaction.ErrPortBusy):
		fmt.Fprintln(c.rl.Stdout(), "Port busy, try again")
	default:
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
	}
}
