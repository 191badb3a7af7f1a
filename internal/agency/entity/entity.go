package entity

// All lists every model for AutoMigrate.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Media{},
		&ServiceProject{},
		&ProjectMilestone{},
		&ProjectMessage{},
		&ProjectFeedback{},
		&ProjectTemplate{},
		&TemplateMilestone{},
		&TemplateTask{},
		&Task{},
		&Product{},
		&Service{},
		&SubscriptionPlan{},
		&DiscountCode{},
		&Order{},
		&OrderItem{},
		&Course{},
		&CourseLanding{},
		&CourseFunnel{},
		&UserProgress{},
		&Achievement{},
		&UserAchievement{},
	}
}
