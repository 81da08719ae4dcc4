package query

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func courseDescriptor() Descriptor {
	d := New("Course", 10,
		Include("CourseCategory", "category", false),
		Include("CourseInstructor", "instructors", true,
			Include("User", "user", true),
		),
	)
	d.GetThisData.Where["isPublished"] = true
	d.GetThisData.Include[0].Where["active"] = true
	d.GetThisData.Include[1].Order = []Order{Ascending("position")}
	return d
}

func TestUpdate_rootWhere(t *testing.T) {
	d := Descriptor{Limit: 10, Offset: 0, GetThisData: &DataNode{Datasource: "Course", Where: Where{}, Include: []*DataNode{}}}

	nd, ok := Update(d, "Course", Patch{Where: Where{"courseTitle": Like("%JAVA%")}})
	require.True(t, ok)
	assert.Equal(t, Where{"courseTitle": Condition{"$like": "%JAVA%"}}, nd.GetThisData.Where)
	assert.Equal(t, 10, nd.Limit)
	assert.Equal(t, 0, nd.Offset)

	// the previous descriptor is untouched
	assert.Empty(t, d.GetThisData.Where)
}

func TestUpdate_mergesWhereKeys(t *testing.T) {
	d := courseDescriptor()

	nd, ok := Update(d, "Course", Patch{Where: Where{
		"isPublished": false,          // replaced
		"courseTitle": Contains("GO"), // added
	}})
	require.True(t, ok)
	assert.Equal(t, Where{
		"isPublished": false,
		"courseTitle": Condition{"$like": "%GO%"},
	}, nd.GetThisData.Where)
}

func TestUpdate_replacesOtherKeys(t *testing.T) {
	d := courseDescriptor()
	attrs := []string{"userId", "firstName"}
	alias := "instructor"
	required := false

	nd, ok := Update(d, "User", Patch{
		Attributes: &attrs,
		Order:      &[]Order{Descending("firstName")},
		As:         &alias,
		Required:   &required,
	})
	require.True(t, ok)

	usr := nd.GetThisData.Include[1].Include[0]
	assert.Equal(t, attrs, usr.Attributes)
	assert.Equal(t, []Order{Descending("firstName")}, usr.Order)
	assert.Equal(t, "instructor", usr.As)
	assert.False(t, *usr.Required)

	// mutating the patch afterwards does not leak into the descriptor
	attrs[0] = "lol"
	assert.Equal(t, "userId", usr.Attributes[0])
}

func TestUpdate_idempotent(t *testing.T) {
	d := courseDescriptor()
	p := Patch{Where: Where{"courseTitle": Or(Like("%a%"), Like("%b%")), "price": Between(10, 20)}}

	once, ok := Update(d, "CourseCategory", p)
	require.True(t, ok)
	twice, ok := Update(once, "CourseCategory", p)
	require.True(t, ok)

	assert.Equal(t, once, twice)
}

func TestUpdate_nonInterference(t *testing.T) {
	d := courseDescriptor()

	nd, ok := Update(d, "CourseCategory", Patch{Where: Where{"name": ILike("%math%")}})
	require.True(t, ok)

	assert.Equal(t, d.GetThisData.Where, nd.GetThisData.Where)
	assert.Equal(t, d.GetThisData.Order, nd.GetThisData.Order)
	assert.Equal(t, d.GetThisData.Include[1], nd.GetThisData.Include[1])
	assert.Equal(t, Where{"active": true, "name": Condition{"$iLike": "%math%"}}, nd.GetThisData.Include[0].Where)
}

func TestUpdate_depthFirstPrecedence(t *testing.T) {
	nested := Include("Course", "prerequisite", false)
	d := New("Course", 10, Include("CourseCategory", "category", false, nested))

	nd, ok := Update(d, "Course", WhereKey("courseId", 7))
	require.True(t, ok)
	assert.Equal(t, 7, nd.GetThisData.Where["courseId"])
	assert.Empty(t, nd.GetThisData.Include[0].Include[0].Where)

	v, ok := Value(nd, "Course", "where.courseId")
	assert.True(t, ok)
	assert.Equal(t, 7, v)

	// first match in pre-order wins among siblings too
	d = New("Record", 10,
		Include("Workspace", "a", false, Include("User", "deep", false)),
		Include("User", "shallow", false),
	)
	nd, _ = Update(d, "User", WhereKey("userId", 1))
	assert.Equal(t, 1, nd.GetThisData.Include[0].Include[0].Where["userId"])
	assert.Empty(t, nd.GetThisData.Include[1].Where)
}

func TestUpdate_missIsNoop(t *testing.T) {
	d := courseDescriptor()

	nd, ok := Update(d, "Cours", WhereKey("courseTitle", "x"))
	assert.False(t, ok)
	assert.Equal(t, d, nd)
	assert.NotSame(t, d.GetThisData, nd.GetThisData)
}

func TestUpdate_nilWhere(t *testing.T) {
	d := Descriptor{GetThisData: &DataNode{Datasource: "Course"}}
	nd, ok := Update(d, "Course", WhereKey("a", 1))
	require.True(t, ok)
	assert.Equal(t, Where{"a": 1}, nd.GetThisData.Where)
	assert.Nil(t, d.GetThisData.Where)

	_, ok = Update(Descriptor{}, "Course", WhereKey("a", 1))
	assert.False(t, ok)
}

func TestValue(t *testing.T) {
	d := courseDescriptor()

	tests := []struct {
		name       string
		datasource string
		key        string
		want       interface{}
		wantOk     bool
	}{
		{name: "where", datasource: "Course", key: "where", want: Where{"isPublished": true}, wantOk: true},
		{name: "where field", datasource: "CourseCategory", key: "where.active", want: true, wantOk: true},
		{name: "where field missing", datasource: "Course", key: "where.lol", wantOk: false},
		{name: "order", datasource: "CourseInstructor", key: "order", want: []Order{Ascending("position")}, wantOk: true},
		{name: "as", datasource: "User", key: "as", want: "user", wantOk: true},
		{name: "required", datasource: "User", key: "required", want: true, wantOk: true},
		{name: "datasource", datasource: "User", key: "datasource", want: "User", wantOk: true},
		{name: "unset attributes", datasource: "Course", key: "attributes", want: []string(nil), wantOk: false},
		{name: "unknown key", datasource: "Course", key: "lol", wantOk: false},
		{name: "unknown datasource", datasource: "Lol", key: "where", wantOk: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Value(d, tt.datasource, tt.key)
			assert.Equal(t, tt.wantOk, ok)
			if tt.wantOk {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestValue_returnsCopies(t *testing.T) {
	d := courseDescriptor()
	v, _ := Value(d, "Course", "where")
	v.(Where)["isPublished"] = false
	assert.Equal(t, true, d.GetThisData.Where["isPublished"])
}

func TestFindAndWalk(t *testing.T) {
	d := courseDescriptor()
	assert.Nil(t, Find(d, "Lol"))
	usr := Find(d, "User")
	require.NotNil(t, usr)
	usr.As = "changed"
	assert.Equal(t, "user", d.GetThisData.Include[1].Include[0].As)

	var visited []string
	var depths []int
	Walk(d, func(n *DataNode, depth int) bool {
		visited = append(visited, n.Datasource)
		depths = append(depths, depth)
		return true
	})
	assert.Equal(t, []string{"Course", "CourseCategory", "CourseInstructor", "User"}, visited)
	assert.Equal(t, []int{0, 1, 1, 2}, depths)
}

func TestDescriptorJSON(t *testing.T) {
	d := New("Course", 10)
	d, _ = Update(d, "Course", Patch{
		Where: Where{"courseTitle": Like("%JAVA%")},
		Order: &[]Order{Descending("createdAt")},
	})

	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"limit": 10,
		"offset": 0,
		"getThisData": {
			"datasource": "Course",
			"where": {"courseTitle": {"$like": "%JAVA%"}},
			"order": [["createdAt", "DESC"]]
		}
	}`, string(data))

	var back Descriptor
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, []Order{Descending("createdAt")}, back.GetThisData.Order)

	var o Order
	assert.Error(t, json.Unmarshal([]byte(`["a"]`), &o))
	assert.Error(t, json.Unmarshal([]byte(`{"field":"a"}`), &o))
}
