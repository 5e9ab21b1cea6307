package roster

import (
	"bytes"
	"io/ioutil"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Load reads a YAML roster:
//
//	members: [Ann, Bob, Cid]
//	cycles:
//	  NewWork: [Ann, Bob, Cid]
//	  Revision: [Cid, Bob, Ann]
func Load(path string) (*Roster, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*Roster, error) {
	r := Roster{}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&r); err != nil {
		return nil, err
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

// FromEnv ROSTER_FILE, the reference roster when unset
func FromEnv() (*Roster, error) {
	path := os.Getenv("ROSTER_FILE")
	if path == "" {
		logrus.Info("ROSTER_FILE not set, using the reference roster")
		return Reference(), nil
	}
	return Load(path)
}
