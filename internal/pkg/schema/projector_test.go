package schema

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/anicoll/blink-integration/internal/pkg/model"
)

func mustSummary(t *testing.T, payload string) *model.Summary {
	t.Helper()
	summary := &model.Summary{}
	require.NoError(t, json.Unmarshal([]byte(payload), summary))
	return summary
}

func TestProject_HomeScenario(t *testing.T) {
	summary := mustSummary(t, `{"network":{"name":"home","armed":false},"devices":[{"name":"cam1","enabled":true}]}`)

	decls := Project(summary)

	paths := []string{}
	for _, d := range decls {
		paths = append(paths, d.ID)
	}
	assert.Equal(t, []string{"home.name", "home.armed", "home.cam1.name", "home.cam1.enabled"}, paths)

	armed := decls[1]
	assert.Equal(t, "armed", armed.Common.Name)
	assert.Equal(t, model.KindBoolean, armed.Common.Type)
	assert.Equal(t, model.RoleIndicator, armed.Common.Role)
	assert.True(t, armed.Common.Read)
	assert.False(t, armed.Common.Write)
	assert.Equal(t, model.ObjectTypeState, armed.Type)
	assert.Equal(t, "home.armed", armed.Native.ID)

	assert.Equal(t, model.KindString, decls[0].Common.Type)
}

func TestProject_CountsAndShape(t *testing.T) {
	tests := map[string]struct {
		payload string
		want    int
	}{
		"no devices": {
			payload: `{"network":{"name":"n","armed":true,"id":1},"devices":[]}`,
			want:    3,
		},
		"missing devices": {
			payload: `{"network":{"name":"n"}}`,
			want:    1,
		},
		"several devices": {
			payload: `{"network":{"name":"n","armed":true},"devices":[
				{"name":"a","enabled":true,"temp":21.5},
				{"name":"b","enabled":false},
				{"name":"c"}]}`,
			want: 2 + 3 + 2 + 1,
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			summary := mustSummary(t, tt.payload)
			decls := Project(summary)
			require.Len(t, decls, tt.want)

			seen := map[string]struct{}{}
			networkAttrs := len(summary.Network)
			for i, d := range decls {
				_, dup := seen[d.ID]
				assert.False(t, dup, "duplicate path %s", d.ID)
				seen[d.ID] = struct{}{}

				segments := strings.Split(d.ID, Separator)
				if i < networkAttrs {
					assert.Len(t, segments, 2, d.ID)
				} else {
					assert.Len(t, segments, 3, d.ID)
				}
			}
		})
	}
}

func TestProject_SkipsNestedValues(t *testing.T) {
	summary := mustSummary(t, `{"network":{"name":"n","sync":{"id":1}},"devices":[{"name":"a","list":[1,2],"x":null,"ok":true}]}`)

	decls := Project(summary)

	require.Len(t, decls, 3)
	assert.Equal(t, "n.name", decls[0].ID)
	assert.Equal(t, "n.a.name", decls[1].ID)
	assert.Equal(t, "n.a.ok", decls[2].ID)
}

func TestProject_SanitisesSegments(t *testing.T) {
	summary := mustSummary(t, `{"network":{"name":"my.home"},"devices":[{"name":"front.door","v1.2":true}]}`)

	decls := Project(summary)

	require.Len(t, decls, 3)
	assert.Equal(t, "my_home.name", decls[0].ID)
	assert.Equal(t, "my_home.front_door.v1_2", decls[2].ID)
	assert.Equal(t, "v1.2", decls[2].Common.Name)
}

func TestProject_SkipsCollidingPaths(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	defer zap.ReplaceGlobals(zap.New(core))()
	summary := mustSummary(t, `{"network":{"name":"n","a.b":1,"a_b":2},"devices":[
		{"name":"front.door","ok":true},
		{"name":"front_door","ok":false}
	]}`)

	decls := Project(summary)

	ids := map[string]bool{}
	for _, d := range decls {
		assert.False(t, ids[d.ID], d.ID)
		ids[d.ID] = true
	}
	require.Len(t, decls, 4)
	assert.Equal(t, []string{"n.name", "n.a_b", "n.front_door.name", "n.front_door.ok"},
		[]string{decls[0].ID, decls[1].ID, decls[2].ID, decls[3].ID})
	assert.Equal(t, "a.b", decls[1].Common.Name)

	entries := logs.FilterMessage("duplicate state path, attribute skipped").All()
	require.Len(t, entries, 3)
	assert.Equal(t, "n.a_b", entries[0].ContextMap()["attribute"])
	assert.Equal(t, "n.a.b", entries[0].ContextMap()["kept"])
}

func TestWalk_MatchesProject(t *testing.T) {
	summary := mustSummary(t, `{"network":{"name":"home","armed":false},"devices":[{"name":"cam1","enabled":true}]}`)

	nodes := Walk(summary)
	decls := Project(summary)

	require.Len(t, nodes, len(decls))
	for i := range nodes {
		assert.Equal(t, decls[i].ID, nodes[i].Path)
	}
	assert.Equal(t, model.Bool(false), nodes[1].Value)
	assert.Empty(t, Project(nil))
}
