package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/ergochat/readline"
	"github.com/rs/zerolog"

	"github.com/avtools/tesira"
	"github.com/avtools/tesira/ttp"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML config file")
	addr := flag.String("addr", "", "device address, host:port (overrides config)")
	useTCP := flag.Bool("tcp", false, "use the plain-text port instead of SSH")
	verbose := flag.Bool("verbose", false, "log protocol traffic")
	flag.Parse()

	config, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		config.Addr = *addr
	}
	if *useTCP {
		config.Transport = "tcp"
	}
	if config.Addr == "" {
		fmt.Fprintln(os.Stderr, "no device address: pass -addr or set addr in the config file")
		os.Exit(1)
	}

	level := zerolog.WarnLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()

	session, err := connect(config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("connection failed")
	}
	defer session.Close()

	fmt.Printf("Connected to %s over %s.\n", config.Addr, config.Transport)
	fmt.Println("Type 'help' for commands.")

	if err := repl(session, logger); err != nil {
		logger.Fatal().Err(err).Msg("session ended")
	}
}

func connect(config cliConfig, logger zerolog.Logger) (*tesira.Session, error) {
	var transport tesira.Transport
	var err error
	switch config.Transport {
	case "tcp":
		transport, err = tesira.DialTCPTimeout(config.Addr, config.DialTimeout.Duration)
	default:
		transport, err = tesira.DialSSH(tesira.SSHConfig{
			Addr:     config.Addr,
			User:     config.User,
			Password: config.Password,
			Timeout:  config.DialTimeout.Duration,
		})
	}
	if err != nil {
		return nil, err
	}

	var catalog *tesira.Catalog
	if config.Catalog != "" {
		catalog, err = tesira.LoadCatalogFile(config.Catalog)
		if err != nil {
			transport.Close()
			return nil, err
		}
	}

	return tesira.NewSession(transport, tesira.Config{
		Catalog:    catalog,
		AliasTypes: config.Aliases,
		Logger:     &logger,
	})
}

func repl(session *tesira.Session, logger zerolog.Logger) error {
	rl, err := readline.NewFromConfig(&readline.Config{
		Prompt:      "tesira> ",
		HistoryFile: historyPath(),
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		parts := strings.Fields(strings.TrimSpace(line))
		if len(parts) == 0 {
			continue
		}

		switch strings.ToLower(parts[0]) {
		case "get", "set", "toggle", "increment", "decrement", "subscribe", "unsubscribe":
			handleVerb(session, ttp.Verb(strings.ToLower(parts[0])), parts[1:])
		case "aliases":
			handleAliases(session)
		case "raw":
			handleRaw(session, strings.TrimSpace(strings.TrimPrefix(line, "raw")))
		case "watch":
			handleWatch(session, parts[1:])
		case "stats":
			handleStats(session)
		case "help":
			printHelp()
		case "quit", "exit":
			return nil
		default:
			fmt.Printf("Unknown command: %s. Type 'help' for available commands.\n", parts[0])
		}
	}
}

// handleVerb builds a schema-validated command for a registered alias
// and sends it. Arguments are parsed with the value grammar, so `-10.0`
// is a float, `true` a boolean, `"x"` a string and `Pink` a constant.
func handleVerb(session *tesira.Session, verb ttp.Verb, parts []string) {
	if len(parts) < 2 {
		fmt.Printf("Usage: %s <alias> <attribute> [args...]\n", verb)
		return
	}

	args := make([]ttp.Value, 0, len(parts)-2)
	for _, word := range parts[2:] {
		v, err := ttp.ParseValue(word)
		if err != nil {
			fmt.Printf("Bad argument %q: %v\n", word, err)
			return
		}
		args = append(args, v)
	}

	cmd, err := session.BuildCommand(parts[0], parts[1], verb, args...)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	if verb == ttp.VerbSubscribe && len(cmd.Values) > 0 {
		// Register the tag before the device starts publishing.
		sub, err := session.Subscribe(cmd.Values[0].Str())
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		watched = append(watched, sub)
	}

	sendAndPrint(session, cmd)

	if verb == ttp.VerbUnsubscribe && len(cmd.Values) > 0 {
		dropWatched(session, cmd.Values[0].Str())
	}
}

// watched holds the subscriptions registered through the subscribe
// command, drained by watch.
var watched []*tesira.Subscription

func dropWatched(session *tesira.Session, tag string) {
	session.Unsubscribe(tag)
	kept := watched[:0]
	for _, sub := range watched {
		if sub.Tag() != tag {
			kept = append(kept, sub)
		}
	}
	watched = kept
}

func handleRaw(session *tesira.Session, line string) {
	words := strings.Fields(line)
	if len(words) < 3 {
		fmt.Println("Usage: raw <instanceTag> <verb> <attribute> [args...]")
		return
	}

	cmd := ttp.Command{
		InstanceTag: words[0],
		Verb:        ttp.Verb(words[1]),
		Attribute:   words[2],
	}
	for _, word := range words[3:] {
		v, err := ttp.ParseValue(word)
		if err != nil {
			fmt.Printf("Bad argument %q: %v\n", word, err)
			return
		}
		cmd.Values = append(cmd.Values, v)
	}

	sendAndPrint(session, cmd)
}

func sendAndPrint(session *tesira.Session, cmd ttp.Command) {
	start := time.Now()
	token, err := session.Send(cmd)
	elapsed := time.Since(start).Round(time.Millisecond)

	var deviceErr *ttp.DeviceError
	switch {
	case errors.As(err, &deviceErr):
		fmt.Printf("Device error (%s): %s\n", deviceErr.Code, deviceErr.Message)
	case err != nil:
		fmt.Printf("Error: %v\n", err)
	default:
		printToken(token, elapsed)
	}
}

func printToken(token ttp.Token, elapsed time.Duration) {
	switch token.Type {
	case ttp.TokenAck:
		fmt.Printf("+OK (%v)\n", elapsed)
	case ttp.TokenValue:
		fmt.Printf("%s (%v)\n", token.Value, elapsed)
	case ttp.TokenList:
		for i, v := range token.List {
			fmt.Printf("%3d: %s\n", i+1, v)
		}
		fmt.Printf("(%d entries, %v)\n", len(token.List), elapsed)
	default:
		fmt.Printf("%s (%v)\n", token.Type, elapsed)
	}
}

func handleAliases(session *tesira.Session) {
	aliases, err := session.ListAliases()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	for _, alias := range aliases {
		fmt.Println(alias)
	}
}

// handleWatch drives the session's polling loop for a while, printing
// every subscribed value as it arrives.
func handleWatch(session *tesira.Session, parts []string) {
	seconds := 10
	if len(parts) == 1 {
		if _, err := fmt.Sscanf(parts[0], "%d", &seconds); err != nil || seconds <= 0 {
			fmt.Println("Usage: watch [seconds]")
			return
		}
	}

	fmt.Printf("Watching for %ds...\n", seconds)
	deadline := time.Now().Add(time.Duration(seconds) * time.Second)
	for time.Now().Before(deadline) {
		outcome, err := session.Poll()
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		if outcome == tesira.OutcomeDelivered {
			drainSubscriptions()
		}
	}
}

// drainSubscriptions prints whatever has been routed so far.
func drainSubscriptions() {
	for _, sub := range watched {
	drain:
		for {
			select {
			case v, ok := <-sub.C():
				if !ok {
					break drain
				}
				fmt.Printf("%s = %s\n", sub.Tag(), v)
			default:
				break drain
			}
		}
	}
}

func handleStats(session *tesira.Session) {
	stats := session.Stats()
	fmt.Printf("commands sent:        %d\n", stats.CommandsSent)
	fmt.Printf("replies:              %d\n", stats.Replies)
	fmt.Printf("device errors:        %d\n", stats.DeviceErrors)
	fmt.Printf("publishes delivered:  %d\n", stats.PublishesDelivered)
	fmt.Printf("publishes dropped:    %d\n", stats.PublishesDropped)
	fmt.Printf("lines discarded:      %d\n", stats.LinesDiscarded)
	fmt.Printf("stray replies:        %d\n", stats.StrayReplies)
}

func printHelp() {
	fmt.Println("Commands:")
	fmt.Println("  get <alias> <attribute> [index...]          - Read an attribute")
	fmt.Println("  set <alias> <attribute> [index...] <value>  - Write an attribute")
	fmt.Println("  toggle <alias> <attribute> [index...]       - Flip a boolean attribute")
	fmt.Println("  increment <alias> <attribute> [i...] <amt>  - Raise an attribute")
	fmt.Println("  decrement <alias> <attribute> [i...] <amt>  - Lower an attribute")
	fmt.Println("  subscribe <alias> <attribute> <i> <tag>     - Subscribe to publishes")
	fmt.Println("  unsubscribe <alias> <attribute> <i> <tag>   - Stop a subscription")
	fmt.Println("  watch [seconds]                             - Print subscribed values")
	fmt.Println("  aliases                                     - List device block aliases")
	fmt.Println("  raw <tag> <verb> <attribute> [args...]      - Send without validation")
	fmt.Println("  stats                                       - Session counters")
	fmt.Println("  quit                                        - Exit")
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home + "/.tesira_history"
}
