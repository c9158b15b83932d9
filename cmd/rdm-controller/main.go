// Command rdm-controller is a reference RDM controller.
//
// It drives a bus of RDM responders: full binary-search discovery, device
// info and label access, DMX start address patching and identify control.
// Without real line hardware it runs against a simulated bus described by
// a YAML file, which makes it useful for exercising the protocol engine
// and for capturing protocol logs.
//
// Usage:
//
//	rdm-controller -bus <file> [flags]
//
// Flags:
//
//	-bus string        Simulated bus description file (YAML)
//	-uid string        Controller UID (default "05e0:00000001")
//	-name string       Gateway name for DNS-SD (default "RDM Gateway")
//	-scope string      DNS-SD scope (default "default")
//	-advertise         Advertise this controller as an RDMnet gateway
//	-log-file string   Write a binary protocol log to this file
//	-verbose           Mirror protocol events to the console
//	-interactive       Enable interactive command mode (default true)
//
// Examples:
//
//	# Explore a simulated rig interactively
//	rdm-controller -bus testdata/rig.yaml
//
//	# Capture a protocol log while advertising on the LAN
//	rdm-controller -bus rig.yaml -advertise -log-file session.rlog
//
// Interactive Commands:
//
//	discover          - Run full discovery on the bus
//	list              - List discovered devices
//	info <uid>        - Show device info and labels
//	label <uid> [s]   - Get or set the device label
//	address <uid> [n] - Get or set the DMX start address
//	identify <uid> on|off - Switch the identify indicator
//	quit              - Exit the controller
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/rdm-protocol/rdm-go/cmd/rdm-controller/interactive"
	"github.com/rdm-protocol/rdm-go/internal/simbus"
	"github.com/rdm-protocol/rdm-go/pkg/dnssd"
	"github.com/rdm-protocol/rdm-go/pkg/interaction"
	rdmlog "github.com/rdm-protocol/rdm-go/pkg/log"
	"github.com/rdm-protocol/rdm-go/pkg/uid"
)

// Config holds the controller configuration.
// It implements interactive.ControllerConfig.
type Config struct {
	BusFile     string
	UID         string
	NameValue   string
	ScopeValue  string
	Advertise   bool
	LogFile     string
	Verbose     bool
	Interactive bool
}

// GatewayName implements interactive.ControllerConfig.
func (c *Config) GatewayName() string {
	return c.NameValue
}

// Scope implements interactive.ControllerConfig.
func (c *Config) Scope() string {
	return c.ScopeValue
}

var config Config

func init() {
	flag.StringVar(&config.BusFile, "bus", "", "Simulated bus description file (YAML)")
	flag.StringVar(&config.UID, "uid", "05e0:00000001", "Controller UID")
	flag.StringVar(&config.NameValue, "name", "RDM Gateway", "Gateway name for DNS-SD")
	flag.StringVar(&config.ScopeValue, "scope", dnssd.DefaultScope, "DNS-SD scope")
	flag.BoolVar(&config.Advertise, "advertise", false, "Advertise this controller as an RDMnet gateway")
	flag.StringVar(&config.LogFile, "log-file", "", "Write a binary protocol log to this file")
	flag.BoolVar(&config.Verbose, "verbose", false, "Mirror protocol events to the console")
	flag.BoolVar(&config.Interactive, "interactive", true, "Enable interactive command mode")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Ltime | log.Lmicroseconds)

	log.Println("RDM Reference Controller")
	log.Println("========================")

	if config.BusFile == "" {
		log.Fatal("A bus description file is required (-bus)")
	}

	controllerUID, err := uid.Parse(config.UID)
	if err != nil {
		log.Fatalf("Invalid controller UID: %v", err)
	}

	bus, err := simbus.LoadFile(config.BusFile)
	if err != nil {
		log.Fatalf("Failed to load bus file: %v", err)
	}
	log.Printf("Loaded simulated bus: %s (%d responders)", config.BusFile, len(bus.Responders()))

	// Protocol log sinks: a binary file for offline analysis, the console
	// when -verbose is set.
	var sinks []rdmlog.Logger
	if config.LogFile != "" {
		fl, err := rdmlog.NewFileLogger(config.LogFile)
		if err != nil {
			log.Fatalf("Failed to open protocol log: %v", err)
		}
		defer fl.Close()
		sinks = append(sinks, fl)
		log.Printf("Protocol log: %s", config.LogFile)
	}
	if config.Verbose {
		sinks = append(sinks, rdmlog.NewSlogAdapter(slog.Default()))
	}

	sessionID := uuid.NewString()
	port, err := interaction.NewPort(interaction.Config{
		Transport:      bus.ControllerPort(),
		UID:            controllerUID,
		SessionID:      sessionID,
		ProtocolLogger: rdmlog.NewMultiLogger(sinks...),
	})
	if err != nil {
		log.Fatalf("Failed to create port: %v", err)
	}
	log.Printf("Controller UID: %s (session %s)", controllerUID, sessionID)

	// Advertise as an RDMnet gateway so LAN controllers can find the bus.
	var adv *dnssd.Advertiser
	if config.Advertise {
		adv = dnssd.NewAdvertiser(dnssd.DefaultAdvertiserConfig())
		err := adv.Advertise(dnssd.GatewayInfo{
			Name:         config.NameValue,
			CID:          sessionID,
			Scope:        config.ScopeValue,
			UID:          controllerUID,
			Model:        "Reference Controller",
			Manufacturer: "RDM Go Project",
		})
		if err != nil {
			log.Fatalf("Failed to advertise gateway: %v", err)
		}
		defer adv.Shutdown()
		log.Printf("Advertising %q in scope %q", config.NameValue, config.ScopeValue)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if config.Interactive {
		ic, err := interactive.New(port, &config, adv)
		if err != nil {
			log.Fatalf("Failed to create interactive controller: %v", err)
		}
		// Redirect log output through readline to avoid interfering with input
		log.SetOutput(ic.Stdout())
		go ic.Run(ctx, cancel)
	}

	// Wait for shutdown signal or context cancellation
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("Received signal: %v", sig)
	case <-ctx.Done():
		// Context was cancelled (e.g., by interactive quit command)
	}

	log.Println("Goodbye!")
}
