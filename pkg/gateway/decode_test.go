package gateway

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnitListDecodeLenient(t *testing.T) {
	t.Run("Well formed", func(t *testing.T) {
		body := `{"units":[{"unit":"U1","models":[{"model":103,"name":"inverter","description":"Inverter","points":[{"model":103,"name":"W","description":"AC Power"}]}]}]}`
		var list UnitList
		require.NoError(t, json.Unmarshal([]byte(body), &list))
		require.Len(t, list.Units, 1)
		require.Len(t, list.Units[0].Models, 1)
		model := list.Units[0].Models[0]
		assert.Equal(t, 103, model.Model)
		assert.Equal(t, "inverter", model.Name)
		assert.Equal(t, []Point{{Model: 103, Name: "W", Description: "AC Power"}}, model.Points)
	})

	t.Run("Malformed point degrades", func(t *testing.T) {
		body := `{"units":[{"unit":"U1","models":[{"model":"103","points":[{"name":5,"description":null},{"name":"Hz"}]}]}]}`
		var list UnitList
		require.NoError(t, json.Unmarshal([]byte(body), &list))
		model := list.Units[0].Models[0]
		assert.Equal(t, 103, model.Model)
		require.Len(t, model.Points, 2)
		assert.Equal(t, Point{}, model.Points[0])
		assert.Equal(t, "Hz", model.Points[1].Name)
		assert.Empty(t, model.Points[1].Description)
	})

	t.Run("Corrupt unit keeps siblings", func(t *testing.T) {
		body := `{"units":[42,{"unit":"U2","models":{"bad":true}},{"unit":"U3","models":[{"model":160,"points":[{"name":"DCA"}]}]}]}`
		var list UnitList
		require.NoError(t, json.Unmarshal([]byte(body), &list))
		require.Len(t, list.Units, 3)
		assert.Equal(t, Unit{}, list.Units[0])
		assert.Equal(t, "U2", list.Units[1].Unit)
		assert.Empty(t, list.Units[1].Models)
		assert.Equal(t, "DCA", list.Units[2].Models[0].Points[0].Name)
	})
}
