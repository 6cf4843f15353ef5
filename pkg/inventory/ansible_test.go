package inventory

import (
	"reflect"
	"strings"
	"testing"
)

func TestParseAnsible(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []Server
		wantErr bool
	}{
		{
			name: "hosts with connection variables",
			input: `[remote_servers]
server1 ansible_host=192.168.1.100 ansible_user=ubuntu
server2 ansible_host=192.168.1.101 ansible_user=root ansible_password=MySecretPassword`,
			want: []Server{
				{Address: "192.168.1.100", Username: "ubuntu"},
				{Address: "192.168.1.101", Username: "root", Password: "MySecretPassword"},
			},
		},
		{
			name:  "numeric range",
			input: `web[1:3].example.com`,
			want: []Server{
				{Address: "web1.example.com"},
				{Address: "web2.example.com"},
				{Address: "web3.example.com"},
			},
		},
		{
			name:  "numeric range with increment",
			input: `node[1:5:2]`,
			want: []Server{
				{Address: "node1"},
				{Address: "node3"},
				{Address: "node5"},
			},
		},
		{
			name:  "alphabetic range",
			input: `db-[a:c]`,
			want: []Server{
				{Address: "db-a"},
				{Address: "db-b"},
				{Address: "db-c"},
			},
		},
		{
			name: "range with variables applied to every host",
			input: `web[1:2] ansible_user=deploy ansible_port=2222`,
			want: []Server{
				{Address: "web1", Port: 2222, Username: "deploy"},
				{Address: "web2", Port: 2222, Username: "deploy"},
			},
		},
		{
			name: "comments and group headers skipped",
			input: `# fleet inventory
; legacy comment
[group_a]
10.0.0.1

[group_b]
10.0.0.2`,
			want: []Server{
				{Address: "10.0.0.1"},
				{Address: "10.0.0.2"},
			},
		},
		{
			name:    "zero increment",
			input:   `web[1:5:0]`,
			wantErr: true,
		},
		{
			name:    "malformed range",
			input:   `web[1]`,
			wantErr: true,
		},
		{
			name:    "multi letter alphabetic range",
			input:   `web[aa:cc]`,
			wantErr: true,
		},
		{
			name:    "bad port variable",
			input:   `10.0.0.1 ansible_port=abc`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAnsible(strings.NewReader(tt.input))
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseAnsible() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ParseAnsible() got %d servers, want %d", len(got), len(tt.want))
			}
			for i, server := range got {
				if !reflect.DeepEqual(server, tt.want[i]) {
					t.Errorf("Server[%d] = %+v, want %+v", i, server, tt.want[i])
				}
			}
		})
	}
}
