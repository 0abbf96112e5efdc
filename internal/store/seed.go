package store

import (
	"fmt"
	"io"
	"os"

	"github.com/flowscan/batchload/internal/model"
	"gopkg.in/yaml.v3"
)

// Seed is a set of records to load into a store
type Seed struct {
	Users        []model.User        `yaml:"users"`
	Edges        []model.Edge        `yaml:"edges"`
	Posts        []model.Post        `yaml:"posts"`
	Comments     []model.Comment     `yaml:"comments"`
	Replies      []model.Reply       `yaml:"replies"`
	Likes        []model.Like        `yaml:"likes"`
	Mentions     []model.Mention     `yaml:"mentions"`
	Hashtags     []model.Hashtag     `yaml:"hashtags"`
	PostHashtags []model.PostHashtag `yaml:"postHashtags"`
	Messages     []model.Message     `yaml:"messages"`
	Partners     []model.Partner     `yaml:"partners"`
	Vendors      []model.Vendor      `yaml:"vendors"`
	Buyers       []model.Buyer       `yaml:"buyers"`
	Campaigns    []model.Campaign    `yaml:"campaigns"`
	Banners      []model.Banner      `yaml:"banners"`
	Interactions []model.Interaction `yaml:"interactions"`
}

// ReadSeed decodes a YAML fixture
func ReadSeed(r io.Reader) (Seed, error) {
	var seed Seed
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&seed); err != nil && err != io.EOF {
		return Seed{}, fmt.Errorf("decode seed: %w", err)
	}
	return seed, nil
}

// LoadSeed reads a YAML fixture file
func LoadSeed(path string) (Seed, error) {
	f, err := os.Open(path)
	if err != nil {
		return Seed{}, fmt.Errorf("open seed: %w", err)
	}
	defer f.Close()
	return ReadSeed(f)
}
