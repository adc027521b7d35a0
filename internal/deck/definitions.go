package deck

import (
	"fmt"
	"os"

	"github.com/partydeck/party-server-go/internal/card"
	"gopkg.in/yaml.v3"
)

// LoadDefinitions reads deck definitions from a YAML file mapping deck type
// keys to card definition lists:
//
//	rule:
//	  - name: Speak in Rhymes
//	    front: Everything you say must rhyme
//	    back: Only the referee may rhyme
//	prompt:
//	  - name: Hot Take
//	    question: Defend your worst opinion for 30 seconds
func LoadDefinitions(path string) (map[string][]card.Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read deck file: %w", err)
	}
	var defs map[string][]card.Definition
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("parse deck file %s: %w", path, err)
	}
	return defs, nil
}

// DefaultDefinitions is the built-in deck set used when no deck file is
// configured. Small but covers every card type.
func DefaultDefinitions() map[string][]card.Definition {
	return map[string][]card.Definition{
		"rule": {
			{Name: "Speak in Rhymes", FrontText: "Everything you say must rhyme", BackText: "Only the referee may rhyme"},
			{Name: "No Names", FrontText: "No one may use another player's name", BackText: "Invent a new name for the player on your left"},
			{Name: "Third Person", FrontText: "Talk about yourself in the third person"},
			{Name: "Silent Snacks", FrontText: "Eating and drinking must be done in silence", BackText: "Narrate everything you eat or drink"},
		},
		"modifier": {
			{Name: "Double Stakes", FrontText: "Penalties count double", BackText: "Penalties count half"},
			{Name: "Mirror Mode", FrontText: "Your left neighbor's rules apply to you too"},
		},
		"prompt": {
			{Name: "Hot Take", Question: "Defend your worst opinion for 30 seconds"},
			{Name: "Impressions", Question: "Impersonate another player until someone guesses who"},
			{Name: "Confession", Question: "Tell the group something nobody here knows"},
		},
		"clone": {
			{Name: "Copycat", FrontText: "Copy any active card from another player"},
		},
		"flip": {
			{Name: "Flip It", FrontText: "Flip one of your active cards", BackText: "Flip any active card on the table"},
		},
		"swap": {
			{Name: "Switcheroo", FrontText: "Take a card from another player"},
		},
	}
}
