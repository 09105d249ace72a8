package main

import (
	"testing"

	"github.com/muurk/lifxlan/internal/protocol"
)

func TestParseShape(t *testing.T) {
	tests := []struct {
		name    string
		want    protocol.Waveform
		wantErr bool
	}{
		{name: "saw", want: protocol.WaveformSaw},
		{name: "SINE", want: protocol.WaveformSine},
		{name: "half-sine", want: protocol.WaveformHalfSine},
		{name: "pulse", want: protocol.WaveformPulse},
		{name: "square", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseShape(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseShape(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("parseShape(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestDescribeFilter(t *testing.T) {
	defer func() { macs, labels, groups = nil, nil, nil }()

	tests := []struct {
		name   string
		macs   []string
		labels []string
		groups []string
		want   string
	}{
		{name: "none", want: "all"},
		{name: "mac", macs: []string{"d0:73:d5:00:00:01"}, want: "mac=d0:73:d5:00:00:01"},
		{
			name:   "label and group",
			labels: []string{"Desk", "Lamp"},
			groups: []string{"Study"},
			want:   "label=Desk,Lamp group=Study",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			macs, labels, groups = tt.macs, tt.labels, tt.groups
			if got := describeFilter(); got != tt.want {
				t.Errorf("describeFilter() = %q, want %q", got, tt.want)
			}
		})
	}
}
