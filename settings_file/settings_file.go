package settings_file

import (
	"fmt"
	"os"

	"diffusion_session_bot/entities"

	"gopkg.in/yaml.v3"
)

// Load reads a server parameter configuration from a local YAML file. It is
// the offline stand-in for the server's own settings endpoint, useful when
// the bot should come up with known defaults before the server is
// reachable.
func Load(path string) (*entities.ServerParams, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading server params file: %w", err)
	}

	var serverParams entities.ServerParams

	err = yaml.Unmarshal(data, &serverParams)
	if err != nil {
		return nil, fmt.Errorf("parsing server params file %s: %w", path, err)
	}

	return &serverParams, nil
}
