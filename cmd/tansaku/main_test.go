package main

import (
	"reflect"
	"testing"
)

func TestBuildSearchQuery(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"machine", "learning"}, "machine learning"},
		{[]string{"single"}, "single"},
		{[]string{" padded "}, "padded"},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := buildSearchQuery(tt.args); got != tt.want {
			t.Errorf("buildSearchQuery(%v) = %q, want %q", tt.args, got, tt.want)
		}
	}
}

func TestSearchArgsReorder(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "flags already first",
			in:   []string{"-top-k", "5", "query"},
			want: []string{"-top-k", "5", "query"},
		},
		{
			name: "flags after query move to front",
			in:   []string{"some", "query", "-output", "json"},
			want: []string{"-output", "json", "some", "query"},
		},
		{
			name: "no flags",
			in:   []string{"just", "a", "query"},
			want: []string{"just", "a", "query"},
		},
		{
			name: "empty",
			in:   []string{},
			want: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := searchArgsReorder(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
