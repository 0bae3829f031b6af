package deck

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Kind tells the presentation layer how a card is rendered.
type Kind string

const (
	KindPlain Kind = "plain"
	KindIcon  Kind = "icon"
)

// Card is one selectable estimate token.
type Card struct {
	Token string `yaml:"token"`
	Kind  Kind   `yaml:"kind"`
}

// Deck is the ordered, closed set of cards available in a deployment.
// Order is display order, not semantic.
type Deck struct {
	cards []Card
	kinds map[string]Kind
}

// Default returns the standard planning poker deck.
func Default() *Deck {
	d, err := New([]Card{
		{Token: "0", Kind: KindPlain},
		{Token: "1", Kind: KindPlain},
		{Token: "2", Kind: KindPlain},
		{Token: "3", Kind: KindPlain},
		{Token: "5", Kind: KindPlain},
		{Token: "8", Kind: KindPlain},
		{Token: "13", Kind: KindPlain},
		{Token: "20", Kind: KindPlain},
		{Token: "40", Kind: KindPlain},
		{Token: "60", Kind: KindPlain},
		{Token: "100", Kind: KindPlain},
		{Token: "?", Kind: KindPlain},
		{Token: "coffee", Kind: KindIcon},
	})
	if err != nil {
		panic(err)
	}
	return d
}

// New builds a deck from an ordered card list.
func New(cards []Card) (*Deck, error) {
	if len(cards) == 0 {
		return nil, fmt.Errorf("deck has no cards")
	}
	kinds := make(map[string]Kind, len(cards))
	for _, c := range cards {
		if c.Token == "" {
			return nil, fmt.Errorf("deck card with empty token")
		}
		if c.Kind != KindPlain && c.Kind != KindIcon {
			return nil, fmt.Errorf("deck card %q has unknown kind %q", c.Token, c.Kind)
		}
		if _, ok := kinds[c.Token]; ok {
			return nil, fmt.Errorf("duplicate deck card %q", c.Token)
		}
		kinds[c.Token] = c.Kind
	}
	return &Deck{cards: append([]Card(nil), cards...), kinds: kinds}, nil
}

// Load reads a deck definition from a YAML file.
func Load(path string) (*Deck, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read deck file: %w", err)
	}
	var file struct {
		Cards []Card `yaml:"cards"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse deck file: %w", err)
	}
	d, err := New(file.Cards)
	if err != nil {
		return nil, fmt.Errorf("invalid deck file %s: %w", path, err)
	}
	return d, nil
}

// Classify returns the display kind for a token. The deck is a closed set;
// asking about a token that is not in it is a programming error.
func (d *Deck) Classify(token string) Kind {
	kind, ok := d.kinds[token]
	if !ok {
		panic(fmt.Sprintf("deck: unknown card token %q", token))
	}
	return kind
}

// Contains reports whether token is part of the deck.
func (d *Deck) Contains(token string) bool {
	_, ok := d.kinds[token]
	return ok
}

// Cards returns the cards in display order.
func (d *Deck) Cards() []Card {
	return append([]Card(nil), d.cards...)
}

// Tokens returns the card tokens in display order.
func (d *Deck) Tokens() []string {
	tokens := make([]string, len(d.cards))
	for i, c := range d.cards {
		tokens[i] = c.Token
	}
	return tokens
}
