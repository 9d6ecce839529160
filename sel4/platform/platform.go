package platform

//
// Per-architecture platform parameters, selected at build time by
// Target. The plan generator consumes the same numbers through the
// probe record (cmd/sel4info), so the two sides agree on word size,
// page size, and object sizes.
//

import (
	"log"
	"strings"

	"gopkg.in/yaml.v3"
)

var Target = "x86_64"

var x8664 = `
arch: x86_64
word_bits: 64
page_bits: 12
slot_bits: 5
endian: little

object_bits:
  tcb: 11
  endpoint: 4
  frame: 12
  vspace: 12
  pagestruct: 12
  asidpool: 12
`

var aarch64 = `
arch: aarch64
word_bits: 64
page_bits: 12
slot_bits: 5
endian: little

object_bits:
  tcb: 11
  endpoint: 4
  frame: 12
  vspace: 12
  pagestruct: 12
  asidpool: 12
`

type Config struct {
	Arch     string `yaml:"arch"`
	WordBits int    `yaml:"word_bits"`
	PageBits int    `yaml:"page_bits"`
	// Log2 of the size of one CNode slot in bytes.
	SlotBits int    `yaml:"slot_bits"`
	Endian   string `yaml:"endian"`
	// Log2 object sizes by object kind.
	ObjectBits map[string]int `yaml:"object_bits"`
}

func (c *Config) PageSize() int {
	return 1 << c.PageBits
}

func (c *Config) WordBytes() int {
	return c.WordBits / 8
}

var Conf *Config

func init() {
	switch Target {
	case "x86_64":
		Conf = ReadConfig(x8664)
	case "aarch64":
		Conf = ReadConfig(aarch64)
	default:
		log.Fatalf("Built for unknown target %s", Target)
	}
}

func ReadConfig(params string) *Config {
	config := &Config{}
	d := yaml.NewDecoder(strings.NewReader(params))
	if err := d.Decode(&config); err != nil {
		log.Fatalf("Yaml decode %v err %v\n", params, err)
	}
	return config
}
