package app

import (
	"encoding/json"
	"errors"
	"os"
)

type ExportCmd struct {
	ToFile string `arg:"-f,--tofile" help:"write to file instead of stdout"`
}

type ImportCmd struct {
	FromFile []string `arg:"-f,--fromfile,separate" help:"read from files instead of stdin (can use flag repeatedly for multiple files)"`
}

type WipeCmd struct{}

type Config struct {
	ExportCmd   *ExportCmd `arg:"subcommand:export" json:"-" help:"export database as line structured JSON"`
	ImportCmd   *ImportCmd `arg:"subcommand:import" json:"-" help:"import data from line structured JSON"`
	WipeCmd     *WipeCmd   `arg:"subcommand:wipe" json:"-" help:"empties database"`
	Listen      string     `arg:"-l,--listen" default:"0.0.0.0:3334" json:"listen" help:"network address to listen on"`
	Profile     string     `arg:"-p,--profile" json:"-" default:"relayr" help:"profile name to use for storage"`
	Name        string     `arg:"-n,--name" json:"name" default:"relayr relay" help:"name of relay for NIP-11"`
	Description string     `arg:"-d,--description" json:"description" help:"description of relay for NIP-11"`
	Pubkey      string     `arg:"--pubkey" json:"pubkey" help:"public key of relay operator"`
	Contact     string     `arg:"-c,--contact" json:"contact,omitempty" help:"non-nostr relay operator contact details"`
	Icon        string     `arg:"-i,--icon" json:"icon" help:"icon to show on relay information pages"`
	MaxLimit    int        `arg:"--maxlimit" json:"max_limit" default:"512" help:"cap on the limit of any single query"`
	MaxSubs     int        `arg:"--maxsubs" json:"max_subs" default:"32" help:"maximum open subscriptions per connection"`
	MaxFilters  int        `arg:"--maxfilters" json:"max_filters" default:"16" help:"maximum filters per subscription request"`
	LogLevel    string     `arg:"--loglevel" default:"info" help:"set log level [off,fatal,error,warn,info,debug,trace]"`
}

func (c *Config) Save(filename string) (err error) {
	if c == nil {
		err = errors.New("cannot save nil relay config")
		log.E.Ln(err)
		return
	}
	var b []byte
	if b, err = json.MarshalIndent(c, "", "    "); chk.E(err) {
		return
	}
	if err = os.WriteFile(filename, b, 0600); chk.E(err) {
		return
	}
	return
}

func (c *Config) Load(filename string) (err error) {
	if c == nil {
		err = errors.New("cannot load into nil config")
		chk.E(err)
		return
	}
	var b []byte
	if b, err = os.ReadFile(filename); chk.E(err) {
		return
	}
	if err = json.Unmarshal(b, c); chk.E(err) {
		return
	}
	return
}
