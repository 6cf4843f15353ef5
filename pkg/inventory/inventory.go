// Package inventory loads the server fleet to probe from. Records come
// from yaml or json files, ansible style host lists, or command line
// entries, and are normalized into validated Server values before any
// connection is attempted.
package inventory

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/projectdiscovery/gologger"
	envutil "github.com/projectdiscovery/utils/env"
	errorutil "github.com/projectdiscovery/utils/errors"
	fileutil "github.com/projectdiscovery/utils/file"
	iputil "github.com/projectdiscovery/utils/ip"
	sliceutil "github.com/projectdiscovery/utils/slice"
	"github.com/tidwall/gjson"
)

const DefaultPort = 22

// addressRe accepts hostnames and IP literals. Addresses are later
// interpolated into a remote shell command, so anything outside this
// set is rejected rather than escaped.
var addressRe = regexp.MustCompile(`^[a-zA-Z0-9._:-]+$`)

// DefaultUsername is the login used by records that omit one. Read at
// call time so values loaded from a .env file are picked up.
func DefaultUsername() string {
	return envutil.GetEnvOrDefault("FLEETPING_SSH_USER", "root")
}

// DefaultPassword is the password used by records that omit one.
func DefaultPassword() string {
	return envutil.GetEnvOrDefault("FLEETPING_SSH_PASSWORD", "")
}

// Server is one probing source: a host the tool logs into over SSH
// together with the targets it should ping.
type Server struct {
	Address  string   `yaml:"ip" json:"ip"`
	Port     int      `yaml:"port,omitempty" json:"port,omitempty"`
	Username string   `yaml:"username,omitempty" json:"username,omitempty"`
	Password string   `yaml:"password,omitempty" json:"password,omitempty"`
	Targets  []string `yaml:"targets,omitempty" json:"targets,omitempty"`
}

type inventoryFile struct {
	Servers []Server `yaml:"servers" json:"servers"`
}

// Load reads an inventory file and returns the normalized server
// records. The format follows the file extension: .yaml/.yml, .json,
// or .ini/.inventory for ansible style host lists. Servers without
// targets of their own receive defaultTargets.
func Load(path string, defaultTargets []string) ([]Server, error) {
	if !fileutil.FileExists(path) {
		return nil, fmt.Errorf("inventory file %s does not exist", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errorutil.NewWithErr(err).Msgf("could not read inventory %s", path)
	}

	var servers []Server
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		servers, err = parseJSON(data)
	case ".ini", ".inventory":
		servers, err = ParseAnsible(strings.NewReader(string(data)))
	default:
		servers, err = parseYAML(data)
	}
	if err != nil {
		return nil, err
	}
	if len(servers) == 0 {
		return nil, fmt.Errorf("no server records found in %s", path)
	}
	return Normalize(servers, defaultTargets)
}

// parseYAML accepts both a top-level "servers:" document and a bare
// list of server records.
func parseYAML(data []byte) ([]Server, error) {
	var doc inventoryFile
	if err := fileutil.Unmarshal(fileutil.YAML, data, &doc); err == nil && len(doc.Servers) > 0 {
		return doc.Servers, nil
	}
	var servers []Server
	if err := fileutil.Unmarshal(fileutil.YAML, data, &servers); err != nil {
		return nil, errorutil.NewWithErr(err).Msgf("could not parse yaml inventory")
	}
	return servers, nil
}

// parseJSON accepts the same two shapes as parseYAML.
func parseJSON(data []byte) ([]Server, error) {
	parsed := gjson.ParseBytes(data)
	records := parsed.Get("servers")
	if !records.Exists() {
		records = parsed
	}
	if !records.IsArray() {
		return nil, errors.New("json inventory must contain a server array")
	}
	var servers []Server
	records.ForEach(func(_, record gjson.Result) bool {
		server := Server{
			Address:  record.Get("ip").String(),
			Port:     int(record.Get("port").Int()),
			Username: record.Get("username").String(),
			Password: record.Get("password").String(),
		}
		record.Get("targets").ForEach(func(_, target gjson.Result) bool {
			server.Targets = append(server.Targets, target.String())
			return true
		})
		servers = append(servers, server)
		return true
	})
	return servers, nil
}

// ParseServerEntries turns -server flag values of the form
// user:pass@host:port into normalized records. Everything except the
// host is optional.
func ParseServerEntries(entries, defaultTargets []string) ([]Server, error) {
	servers := make([]Server, 0, len(entries))
	for _, entry := range entries {
		server, err := parseServerEntry(entry)
		if err != nil {
			return nil, err
		}
		servers = append(servers, server)
	}
	return Normalize(servers, defaultTargets)
}

func parseServerEntry(entry string) (Server, error) {
	var server Server
	hostPart := entry
	if at := strings.LastIndex(entry, "@"); at >= 0 {
		creds := entry[:at]
		hostPart = entry[at+1:]
		if colon := strings.Index(creds, ":"); colon >= 0 {
			server.Username = creds[:colon]
			server.Password = creds[colon+1:]
		} else {
			server.Username = creds
		}
	}
	if host, port, err := net.SplitHostPort(hostPart); err == nil {
		server.Address = host
		parsed, err := strconv.Atoi(port)
		if err != nil {
			return server, fmt.Errorf("invalid port in server entry %q", entry)
		}
		server.Port = parsed
	} else {
		server.Address = hostPart
	}
	if server.Address == "" {
		return server, fmt.Errorf("server entry %q has no host", entry)
	}
	return server, nil
}

// Normalize fills credential and port defaults, dedupes targets, and
// validates every address. Servers left without targets are dropped
// with a warning rather than failing the whole inventory.
func Normalize(servers []Server, defaultTargets []string) ([]Server, error) {
	normalized := make([]Server, 0, len(servers))
	for i := range servers {
		server := servers[i]
		if server.Address == "" {
			gologger.Warning().Msgf("skipping server record %d: no address", i+1)
			continue
		}
		if err := validateAddress(server.Address); err != nil {
			return nil, err
		}
		if server.Port == 0 {
			server.Port = DefaultPort
		}
		if server.Port < 1 || server.Port > 65535 {
			return nil, fmt.Errorf("server %s: invalid port %d", server.Address, server.Port)
		}
		if server.Username == "" {
			server.Username = DefaultUsername()
		}
		if server.Password == "" {
			server.Password = DefaultPassword()
		}
		if len(server.Targets) == 0 {
			server.Targets = append([]string(nil), defaultTargets...)
		}
		server.Targets = sliceutil.Dedupe(server.Targets)
		for _, target := range server.Targets {
			if err := validateAddress(target); err != nil {
				return nil, err
			}
		}
		if len(server.Targets) == 0 {
			gologger.Warning().Msgf("skipping server %s: no targets", server.Address)
			continue
		}
		normalized = append(normalized, server)
	}
	return normalized, nil
}

// TotalTargets counts the probe sessions an inventory will produce.
func TotalTargets(servers []Server) int {
	total := 0
	for _, server := range servers {
		total += len(server.Targets)
	}
	return total
}

func validateAddress(address string) error {
	if iputil.IsIP(address) {
		return nil
	}
	if !addressRe.MatchString(address) {
		return fmt.Errorf("invalid address %q", address)
	}
	return nil
}
