package obs

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/andreykaipov/goobs"
	"github.com/andreykaipov/goobs/api/requests/inputs"
	"github.com/andreykaipov/goobs/api/requests/sceneitems"
	"github.com/rs/zerolog/log"
)

// Source is a scene or group item together with its OBS input kind.
type Source struct {
	Name      string
	InputKind string
}

type Client struct {
	client *goobs.Client
	addr   string
}

type dialResult struct {
	client *goobs.Client
	err    error
}

// Connect opens an OBS WebSocket v5 session. An empty password connects
// without authentication. The dial is abandoned when ctx is done.
func Connect(ctx context.Context, host string, port int, password string) (*Client, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	var opts []goobs.Option
	if password != "" {
		opts = append(opts, goobs.WithPassword(password))
	}

	log.Debug().Str("addr", addr).Bool("auth", password != "").Msg("Connecting to OBS WebSocket")

	done := make(chan dialResult, 1)
	go func() {
		c, err := goobs.New(addr, opts...)
		done <- dialResult{client: c, err: err}
	}()

	select {
	case <-ctx.Done():
		go func() {
			if r := <-done; r.err == nil {
				r.client.Disconnect()
			}
		}()
		return nil, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("failed to connect to OBS at %s: %w", addr, r.err)
		}
		return &Client{client: r.client, addr: addr}, nil
	}
}

func (c *Client) Addr() string {
	return c.addr
}

func (c *Client) Disconnect() error {
	return c.client.Disconnect()
}

// Sources lists every item of every scene and group. A name seen twice keeps
// the kind of its last occurrence.
func (c *Client) Sources() ([]Source, error) {
	sceneList, err := c.client.Scenes.GetSceneList()
	if err != nil {
		return nil, fmt.Errorf("failed to get scene list: %w", err)
	}
	groupList, err := c.client.Scenes.GetGroupList()
	if err != nil {
		return nil, fmt.Errorf("failed to get group list: %w", err)
	}

	var all []Source
	for _, scene := range sceneList.Scenes {
		resp, err := c.client.SceneItems.GetSceneItemList(
			sceneitems.NewGetSceneItemListParams().WithSceneName(scene.SceneName))
		if err != nil {
			return nil, fmt.Errorf("failed to get items of scene %s: %w", scene.SceneName, err)
		}
		for _, item := range resp.SceneItems {
			all = append(all, Source{Name: item.SourceName, InputKind: item.InputKind})
		}
	}

	for _, group := range groupList.Groups {
		resp, err := c.client.SceneItems.GetGroupSceneItemList(
			sceneitems.NewGetGroupSceneItemListParams().WithSceneName(group))
		if err != nil {
			return nil, fmt.Errorf("failed to get items of group %s: %w", group, err)
		}
		for _, item := range resp.SceneItems {
			all = append(all, Source{Name: item.SourceName, InputKind: item.InputKind})
		}
	}

	log.Debug().
		Int("scenes", len(sceneList.Scenes)).
		Int("groups", len(groupList.Groups)).
		Int("items", len(all)).
		Msg("Listed OBS sources")

	return Dedupe(all), nil
}

// Dedupe collapses sources by name, keeping first-seen order and last-seen kind.
func Dedupe(sources []Source) []Source {
	index := make(map[string]int, len(sources))
	var out []Source
	for _, s := range sources {
		if i, ok := index[s.Name]; ok {
			out[i].InputKind = s.InputKind
			continue
		}
		index[s.Name] = len(out)
		out = append(out, s)
	}
	return out
}

func (c *Client) InputSettings(name string) (map[string]any, error) {
	resp, err := c.client.Inputs.GetInputSettings(
		inputs.NewGetInputSettingsParams().WithInputName(name))
	if err != nil {
		return nil, fmt.Errorf("failed to get settings of input %s: %w", name, err)
	}
	return resp.InputSettings, nil
}

// SetInputSettings overlays settings onto the input's current settings.
func (c *Client) SetInputSettings(name string, settings map[string]any) error {
	_, err := c.client.Inputs.SetInputSettings(
		inputs.NewSetInputSettingsParams().
			WithInputName(name).
			WithInputSettings(settings).
			WithOverlay(true))
	if err != nil {
		return fmt.Errorf("failed to set settings of input %s: %w", name, err)
	}
	return nil
}
