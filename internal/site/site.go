package site

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/example/merch-storefront/internal/domain/catalog"
	"gopkg.in/yaml.v3"
)

// Link is a social or call-to-action link in the shell
type Link struct {
	Href  string `yaml:"href" json:"href"`
	Icon  string `yaml:"icon,omitempty" json:"icon,omitempty"`
	Label string `yaml:"label" json:"label"`
}

type Hero struct {
	BackgroundImage string `yaml:"background_image" json:"background_image"`
	BackgroundVideo string `yaml:"background_video,omitempty" json:"background_video,omitempty"`
}

type Audio struct {
	TrackURL string `yaml:"track_url" json:"track_url"`
	Autoplay bool   `yaml:"autoplay" json:"autoplay"`
	Loop     bool   `yaml:"loop" json:"loop"`
}

// Config is the presentation shell plus the storefront branding
type Config struct {
	ArtistName      string         `yaml:"artist_name" json:"artist_name"`
	Brand           string         `yaml:"brand" json:"brand"`
	Tagline         string         `yaml:"tagline" json:"tagline"`
	LogoURL         string         `yaml:"logo_url" json:"logo_url"`
	Hero            Hero           `yaml:"hero" json:"hero"`
	Audio           Audio          `yaml:"audio" json:"audio"`
	SocialLinks     []Link         `yaml:"social_links" json:"social_links"`
	ActionLinks     []Link         `yaml:"action_links" json:"action_links"`
	Currency        string         `yaml:"currency" json:"currency"`
	ReferencePrefix string         `yaml:"reference_prefix" json:"-"`
	Catalog         []catalog.Item `yaml:"catalog,omitempty" json:"-"`
}

func Default() Config {
	return Config{
		ArtistName: "Julian Hartmann",
		Brand:      "Julian Hartmann Music",
		Tagline:    "New single out now",
		LogoURL:    "/assets/logo.png",
		Hero: Hero{
			BackgroundImage: "/assets/hero.jpg",
		},
		Audio: Audio{
			TrackURL: "/assets/single.mp3",
			Autoplay: true,
			Loop:     true,
		},
		SocialLinks: []Link{
			{Href: "https://open.spotify.com/", Icon: "/assets/icons/spotify.svg", Label: "Listen on Spotify"},
			{Href: "https://music.apple.com/", Icon: "/assets/icons/apple-music.svg", Label: "Listen on Apple Music"},
			{Href: "https://www.youtube.com/", Icon: "/assets/icons/youtube.svg", Label: "Watch on YouTube"},
			{Href: "https://www.instagram.com/", Icon: "/assets/icons/instagram.svg", Label: "Follow on Instagram"},
			{Href: "https://www.tiktok.com/", Icon: "/assets/icons/tik-tok.svg", Label: "Follow on TikTok"},
		},
		ActionLinks: []Link{
			{Href: "https://www.instagram.com/", Label: "Follow for Updates"},
		},
		Currency:        "USD",
		ReferencePrefix: "JH",
	}
}

// Load reads the YAML file at path over the defaults. A missing file yields
// the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("site: read %s: %w", path, err)
	}
	return Parse(data)
}

func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("site: parse: %w", err)
	}
	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("site: %w", err)
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.Currency = strings.ToUpper(strings.TrimSpace(c.Currency))
	c.ReferencePrefix = strings.TrimSpace(c.ReferencePrefix)
	if c.Brand == "" {
		c.Brand = c.ArtistName
	}
}

func (c *Config) validate() error {
	if c.ArtistName == "" {
		return errors.New("artist_name is required")
	}
	if len(c.Currency) != 3 {
		return fmt.Errorf("currency must be a three letter code, got %q", c.Currency)
	}
	if c.ReferencePrefix == "" {
		return errors.New("reference_prefix is required")
	}
	for _, l := range append(append([]Link{}, c.SocialLinks...), c.ActionLinks...) {
		if l.Href == "" {
			return fmt.Errorf("link %q has no href", l.Label)
		}
	}
	return nil
}

// BuildCatalog returns the configured catalog, or the built-in one when the
// file has none
func (c Config) BuildCatalog() (*catalog.Catalog, error) {
	if len(c.Catalog) == 0 {
		return catalog.Default(), nil
	}
	return catalog.New(c.Catalog)
}
