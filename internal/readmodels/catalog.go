package readmodels

import (
	"strings"

	ag "github.com/yungbote/coursemart-backend/internal/aggregation"
	types "github.com/yungbote/coursemart-backend/internal/domain"
)

// CourseSortFields is the course listing sort allow-list.
var CourseSortFields = []string{"title", "price", "created_at"}

var sortAliases = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}

// CourseRelations populate a course with its instructor and category names.
func CourseRelations() []ag.Stage {
	return []ag.Stage{
		ag.Join{Relation: "course_instructor", As: "instructor", Pipeline: []ag.Stage{
			ag.Join{Relation: "instructor_user", As: "user", Pipeline: []ag.Stage{
				ag.Include(ag.Keep("name"), ag.Keep("username"), ag.Keep("email")),
			}},
			ag.Unwind{Path: "user", PreserveEmpty: true},
			ag.Include(ag.Keep("user")),
		}},
		ag.Unwind{Path: "instructor", PreserveEmpty: true},
		ag.Join{Relation: "course_category", As: "category", Pipeline: []ag.Stage{
			ag.Include(ag.Keep("name")),
		}},
		ag.Unwind{Path: "category", PreserveEmpty: true},
	}
}

// CourseDetail is a course with its relations and rating statistics.
func CourseDetail() ag.Pipeline {
	stages := append(CourseRelations(),
		ag.Join{Relation: "course_reviews", As: "reviews"},
		ag.Count("ratingStats.reviewCount", "reviews"),
		ag.Average("ratingStats.averageRating", "reviews", "rating"),
		ag.Exclude("reviews"),
	)
	return ag.Pipeline{Collection: types.CollectionCourses, Stages: stages}
}

// CategoryRelations populate a category with its creator.
func CategoryRelations() []ag.Stage {
	return []ag.Stage{
		ag.Join{Relation: "category_creator", As: "createdBy", Pipeline: []ag.Stage{
			ag.Include(ag.Keep("name"), ag.Keep("username")),
		}},
		ag.Unwind{Path: "createdBy", PreserveEmpty: true},
	}
}

func CategoryDetail() ag.Pipeline {
	return ag.Pipeline{Collection: types.CollectionCategories, Stages: CategoryRelations()}
}

// ListParams are the raw listing query parameters.
type ListParams struct {
	Page     int
	Limit    int
	Query    string
	SortBy   string
	SortType string
	// Refs are identifier filters keyed by field, validated by the engine.
	Refs map[string]string
}

func CourseListing(p ListParams) ag.ListQuery {
	q := listQuery(types.CollectionCourses, "title", p)
	q.SortFields = CourseSortFields
	q.Relations = CourseRelations()
	return q
}

func CategoryListing(p ListParams) ag.ListQuery {
	q := listQuery(types.CollectionCategories, "name", p)
	q.Relations = CategoryRelations()
	return q
}

func listQuery(collection, searchField string, p ListParams) ag.ListQuery {
	q := ag.ListQuery{
		Collection: collection,
		Page:       p.Page,
		Limit:      p.Limit,
	}
	if strings.TrimSpace(p.Query) != "" {
		q.Filter.Search = &ag.Search{Field: searchField, Term: p.Query}
	}
	for field, raw := range p.Refs {
		if raw == "" {
			continue
		}
		if q.Filter.Refs == nil {
			q.Filter.Refs = map[string]string{}
		}
		q.Filter.Refs[field] = raw
	}
	if by := strings.TrimSpace(p.SortBy); by != "" {
		if alias, ok := sortAliases[by]; ok {
			by = alias
		}
		q.Sort = &ag.Sort{Field: by, Desc: !strings.EqualFold(p.SortType, "asc")}
	}
	return q
}
