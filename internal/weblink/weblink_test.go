package weblink

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild(t *testing.T) {
	b := NewBuilder("", false)

	tests := []struct {
		name string
		id   Identity
		want string
	}{
		{
			name: "all fields",
			id:   Identity{ID: 42, FirstName: "Alice", Username: "alice99"},
			want: "https://yourblog.blogspot.com/?id=42&name=Alice&username=alice99",
		},
		{
			name: "no handle",
			id:   Identity{ID: 7, FirstName: "Bob"},
			want: "https://yourblog.blogspot.com/?id=7&name=Bob&username=User",
		},
		{
			name: "no name",
			id:   Identity{ID: 9, Username: "ghost"},
			want: "https://yourblog.blogspot.com/?id=9&name=&username=ghost",
		},
		{
			name: "raw values are kept",
			id:   Identity{ID: 1, FirstName: "Анна Мария", Username: "a_m"},
			want: "https://yourblog.blogspot.com/?id=1&name=Анна Мария&username=a_m",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, b.Build(tt.id))
		})
	}
}

func TestBuild_TrailingSlash(t *testing.T) {
	b := NewBuilder("https://example.org/app/", false)
	assert.Equal(t, "https://example.org/app/?id=5&name=Eve&username=eve", b.Build(Identity{ID: 5, FirstName: "Eve", Username: "eve"}))
}

func TestBuild_Encode(t *testing.T) {
	b := NewBuilder("https://example.org", true)
	link := b.Build(Identity{ID: 3, FirstName: "Tom & Jerry"})
	assert.Equal(t, "https://example.org/?id=3&name=Tom+%26+Jerry&username=User", link)

	u, err := url.Parse(link)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "3", q.Get("id"))
	assert.Equal(t, "Tom & Jerry", q.Get("name"))
	assert.Equal(t, "User", q.Get("username"))
}

func TestGreeting(t *testing.T) {
	assert.Equal(t, "Hello Alice! Welcome to our app.", Greeting("Alice"))
	assert.Equal(t, "Hello! Welcome to our app.", Greeting(""))
}
