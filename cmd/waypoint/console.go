package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/UnknownOlympus/waypoint/internal/address"
	"github.com/UnknownOlympus/waypoint/internal/debounce"
	"github.com/UnknownOlympus/waypoint/internal/mapcenter"
	"github.com/UnknownOlympus/waypoint/internal/models"
)

const loadingBanner = "...Loading"

const helpText = `commands:
  type <text>        search places
  suggestions        list suggestions
  select <n|label>   center the map on a suggestion
  drag <lat> <lng>   move the map center
  center             show the map center
  submit             resolve the map center into a location record
  key <value>        store the map API key
  quit               exit`

// picker is the part of the session the console drives.
type picker interface {
	InputChanged(ctx context.Context, text string) *debounce.PendingLookup
	Select(ctx context.Context, label string) error
	DragEnd(ctx context.Context, coord models.Coordinate) error
	Submit(ctx context.Context) (models.LocationRecord, error)
	Suggestions() []models.SuggestionOption
	Center() models.Coordinate
	State() mapcenter.State
	SetAPIKey(ctx context.Context, key string) error
}

type keyStore interface {
	SetAPIKey(key string) error
}

// console reads commands line by line and plays the role of the map page.
type console struct {
	out   io.Writer
	lines chan string

	mu      sync.Mutex // serializes writes to out
	submits sync.WaitGroup
}

func newConsole(in io.Reader, out io.Writer) *console {
	c := &console{out: out, lines: make(chan string)}

	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			c.lines <- scanner.Text()
		}
		close(c.lines)
	}()

	return c
}

func (c *console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.out, format+"\n", args...)
}

// next returns the next command and its argument.
func (c *console) next(ctx context.Context) (string, string, bool) {
	select {
	case <-ctx.Done():
		return "", "", false
	case line, ok := <-c.lines:
		if !ok {
			return "", "", false
		}
		cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
		return strings.ToLower(cmd), strings.TrimSpace(arg), true
	}
}

// sink prints every emitted record as indented JSON.
func (c *console) sink() mapcenter.Sink {
	return mapcenter.SinkFunc(func(_ context.Context, record models.LocationRecord) {
		data, err := json.MarshalIndent(record, "", "  ")
		if err != nil {
			c.printf("failed to encode record: %v", err)
			return
		}
		c.printf("%s", data)
	})
}

// awaitKey shows the loading state until a key is entered. It returns false
// when the user quits or input ends first.
func (c *console) awaitKey(ctx context.Context, store keyStore) (string, bool) {
	c.printf(loadingBanner)

	for {
		cmd, arg, ok := c.next(ctx)
		if !ok {
			return "", false
		}

		switch cmd {
		case "key":
			if arg == "" {
				c.printf("usage: key <value>")
				continue
			}
			if err := store.SetAPIKey(arg); err != nil {
				c.printf("failed to store key: %v", err)
				continue
			}
			return arg, true
		case "quit", "exit":
			return "", false
		default:
			c.printf(loadingBanner)
		}
	}
}

// run dispatches commands until quit, end of input or cancellation.
// Outstanding submits are awaited before it returns.
func (c *console) run(ctx context.Context, p picker) {
	defer c.submits.Wait()

	for {
		cmd, arg, ok := c.next(ctx)
		if !ok {
			return
		}

		switch cmd {
		case "":
		case "help":
			c.printf(helpText)
		case "type":
			p.InputChanged(ctx, arg)
		case "suggestions":
			c.listSuggestions(p.Suggestions())
		case "select":
			c.selectPlace(ctx, p, arg)
		case "drag":
			c.drag(ctx, p, arg)
		case "center":
			center := p.Center()
			c.printf("%.6f %.6f (%s)", center.Latitude, center.Longitude, p.State())
		case "submit":
			c.submits.Add(1)
			go func() {
				defer c.submits.Done()
				c.submit(ctx, p)
			}()
		case "key":
			if err := p.SetAPIKey(ctx, arg); err != nil {
				c.printf("failed to store key: %v", err)
				continue
			}
			c.printf("key stored, it is used from the next start")
		case "quit", "exit":
			return
		default:
			c.printf("unknown command %q, type 'help'", cmd)
		}
	}
}

func (c *console) listSuggestions(options []models.SuggestionOption) {
	if len(options) == 0 {
		c.printf("no suggestions")
		return
	}
	for i, option := range options {
		c.printf("%d. %s", i+1, option.Label)
	}
}

func (c *console) selectPlace(ctx context.Context, p picker, arg string) {
	label := arg
	if n, err := strconv.Atoi(arg); err == nil {
		options := p.Suggestions()
		if n < 1 || n > len(options) {
			c.printf("no suggestion number %d", n)
			return
		}
		label = options[n-1].Label
	}
	if label == "" {
		c.printf("usage: select <n|label>")
		return
	}

	if err := p.Select(ctx, label); err != nil {
		c.printf("place not found: %s", label)
		return
	}
	center := p.Center()
	c.printf("map centered on %s (%.6f %.6f)", label, center.Latitude, center.Longitude)
}

func (c *console) drag(ctx context.Context, p picker, arg string) {
	fields := strings.Fields(arg)
	if len(fields) != 2 {
		c.printf("usage: drag <lat> <lng>")
		return
	}
	lat, latErr := strconv.ParseFloat(fields[0], 64)
	lng, lngErr := strconv.ParseFloat(fields[1], 64)
	if latErr != nil || lngErr != nil {
		c.printf("usage: drag <lat> <lng>")
		return
	}

	if err := p.DragEnd(ctx, models.Coordinate{Latitude: lat, Longitude: lng}); err != nil {
		c.printf("invalid map center: %v", err)
	}
}

func (c *console) submit(ctx context.Context, p picker) {
	_, err := p.Submit(ctx)
	switch {
	case err == nil, errors.Is(err, mapcenter.ErrStaleSubmit):
	case errors.Is(err, models.ErrUnusableAddress), errors.Is(err, address.ErrNoUsableResult):
		c.printf("try another location")
	default:
		c.printf("location lookup failed: %v", err)
	}
}
