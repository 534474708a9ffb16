package domain

// Store collection names. Relationships between them live in the
// aggregation registry.
const (
	CollectionUsers       = "users"
	CollectionInstructors = "instructors"
	CollectionCourses     = "courses"
	CollectionCategories  = "categories"
	CollectionModules     = "modules"
	CollectionLessons     = "lessons"
	CollectionEnrollments = "enrollments"
	CollectionReviews     = "reviews"
	CollectionOrders      = "orders"
)
