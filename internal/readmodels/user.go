package readmodels

import (
	ag "github.com/yungbote/coursemart-backend/internal/aggregation"
	types "github.com/yungbote/coursemart-backend/internal/domain"
)

// CurrentUser resolves a user with every enrollment, each enrollment's
// course tree and the user's enrollment statistics.
func CurrentUser() ag.Pipeline {
	return ag.Pipeline{
		Collection: types.CollectionUsers,
		Stages: []ag.Stage{
			ag.Join{Relation: "user_enrollments", As: "enrollments", Pipeline: []ag.Stage{
				ag.Join{Relation: "enrollment_course", As: "courseDetails", Pipeline: enrolledCourse()},
				// An enrollment whose course is gone is dropped; the user stays.
				ag.Unwind{Path: "courseDetails"},
				ag.Include(
					ag.Keep("enrolled_at"),
					ag.Keep("progress"),
					ag.Keep("completed"),
					ag.Rename("course._id", "courseDetails._id"),
					ag.Rename("course.title", "courseDetails.title"),
					ag.Rename("course.description", "courseDetails.description"),
					ag.Rename("course.price", "courseDetails.price"),
					ag.Rename("course.thumbnail_url", "courseDetails.thumbnail"),
					ag.Rename("course.published", "courseDetails.published"),
					ag.ElemAt("course.instructor", "courseDetails.instructorInfo", 0),
					ag.Rename("course.category", "courseDetails.category"),
					ag.Rename("course.modules", "courseDetails.modules"),
					ag.Rename("course.totalModules", "courseDetails.totalModules"),
					ag.Rename("course.totalLessons", "courseDetails.totalLessons"),
				),
			}},
			ag.Count("enrollmentStats.totalEnrollments", "enrollments"),
			ag.FilteredCount("enrollmentStats.completedCourses", "enrollments", ag.Predicate{Field: "completed", Equals: true}),
			ag.FilteredCount("enrollmentStats.inProgressCourses", "enrollments", ag.Predicate{Field: "completed", Equals: false}),
			ag.Average("enrollmentStats.averageProgress", "enrollments", "progress"),
			ag.Exclude("password_hash", "refresh_token"),
		},
	}
}

func enrolledCourse() []ag.Stage {
	return []ag.Stage{
		ag.Join{Relation: "course_instructor_mapping", As: "instructorMapping"},
		ag.Unwind{Path: "instructorMapping", PreserveEmpty: true},
		ag.Join{Relation: "instructor_user", Via: "instructorMapping", As: "instructorInfo", Pipeline: []ag.Stage{
			ag.Include(ag.Keep("name"), ag.Keep("email"), ag.Keep("username")),
		}},
		ag.Join{Relation: "course_category", As: "category"},
		ag.Unwind{Path: "category", PreserveEmpty: true},
		ag.Join{Relation: "course_modules", As: "modules", Pipeline: []ag.Stage{
			ag.Join{Relation: "module_lessons", As: "lessons"},
			ag.Count("lessonCount", "lessons"),
			ag.Include(ag.Keep("title"), ag.Keep("description"), ag.Keep("lessonCount")),
		}},
		ag.Count("totalModules", "modules"),
		ag.Sum("totalLessons", "modules", "lessonCount"),
	}
}

// WatchHistory resolves the lessons a user watched with their course and
// instructor names.
func WatchHistory() ag.Pipeline {
	return ag.Pipeline{
		Collection: types.CollectionUsers,
		Stages: []ag.Stage{
			ag.Join{Relation: "user_watch_history", As: "watchHistory", Pipeline: []ag.Stage{
				ag.Join{Relation: "lesson_course", As: "courseInfo", Pipeline: []ag.Stage{
					ag.Join{Relation: "course_instructor_mapping", As: "instructorMap"},
					ag.Unwind{Path: "instructorMap", PreserveEmpty: true},
					ag.Join{Relation: "instructor_user", Via: "instructorMap", As: "instructorDetails", Pipeline: []ag.Stage{
						ag.Include(ag.Keep("name")),
					}},
					ag.Unwind{Path: "instructorDetails", PreserveEmpty: true},
					ag.Include(
						ag.Keep("title"),
						ag.Keep("thumbnail"),
						ag.Rename("instructorName", "instructorDetails.name"),
					),
				}},
				ag.Unwind{Path: "courseInfo", PreserveEmpty: true},
				ag.Include(
					ag.Keep("title"),
					ag.Keep("video_url"),
					ag.Keep("completed"),
					ag.Rename("courseName", "courseInfo.title"),
					ag.Rename("courseThumbnail", "courseInfo.thumbnail"),
					ag.Rename("instructorName", "courseInfo.instructorName"),
					ag.Rename("lessonName", "title"),
				),
			}},
			ag.Include(ag.Keep("name"), ag.Keep("username"), ag.Keep("watchHistory")),
		},
	}
}

// WatchHistoryDocument is the client shape of a resolved WatchHistory record.
func WatchHistoryDocument(doc ag.Record) ag.Record {
	history, _ := doc["watchHistory"].([]any)
	if history == nil {
		history = []any{}
	}
	return ag.Record{
		"user":         doc["name"],
		"username":     doc["username"],
		"watchHistory": history,
	}
}

// Progress resolves a user's enrollments as progress entries.
func Progress() ag.Pipeline {
	return ag.Pipeline{
		Collection: types.CollectionUsers,
		Stages: []ag.Stage{
			ag.Join{Relation: "user_enrollments", As: "progressData", Pipeline: []ag.Stage{
				ag.Join{Relation: "enrollment_course", As: "course", Pipeline: []ag.Stage{
					ag.Include(ag.Keep("title"), ag.Keep("thumbnail")),
				}},
				ag.Unwind{Path: "course"},
				ag.Include(
					ag.Rename("courseId", "course._id"),
					ag.Rename("courseTitle", "course.title"),
					ag.Rename("courseThumbnail", "course.thumbnail"),
					ag.Keep("progress"),
					ag.Keep("completed"),
					ag.Rename("enrolledAt", "enrolled_at"),
				),
				ag.Exclude("_id"),
			}},
			ag.Include(ag.Keep("progressData")),
		},
	}
}

// ProgressEntries extracts the entries of a resolved Progress record with
// progress rounded to two decimals.
func ProgressEntries(doc ag.Record) []ag.Record {
	raw, _ := doc["progressData"].([]any)
	out := make([]ag.Record, 0, len(raw))
	for _, it := range raw {
		entry, ok := it.(ag.Record)
		if !ok {
			continue
		}
		if f, ok := ag.ToFloat(entry["progress"]); ok {
			entry["progress"] = ag.Round(f, 2)
		}
		out = append(out, entry)
	}
	return out
}
