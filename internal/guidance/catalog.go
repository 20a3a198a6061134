package guidance

// CareerCategory 一个职业大类及其下属职业方向
type CareerCategory struct {
	Name    string   `json:"name"`
	Careers []string `json:"careers"`
}

// careerCatalog 内置职业目录，按大类组织。
// 外部数据源不可用时作为兜底选项，顺序即展示顺序。
var careerCatalog = []CareerCategory{
	{
		Name: "Technology",
		Careers: []string{
			"Software Engineering", "Data Science", "Cybersecurity", "AI/ML Engineering",
			"DevOps", "Cloud Architecture", "Mobile Development", "Full Stack Development",
			"Web Development", "Game Development",
		},
	},
	{
		Name: "Healthcare",
		Careers: []string{
			"Medicine", "Nursing", "Pharmacy", "Biomedical Engineering",
			"Healthcare Administration", "Physical Therapy", "Medical Research",
			"Healthcare IT", "Clinical Psychology", "Dentistry",
		},
	},
	{
		Name: "Business",
		Careers: []string{
			"Finance", "Marketing", "Management", "Entrepreneurship", "Business Analysis",
			"Project Management", "Human Resources", "Sales", "Operations", "Consulting",
		},
	},
	{
		Name: "Creative",
		Careers: []string{
			"Graphic Design", "UX/UI Design", "Content Creation", "Digital Marketing",
			"Animation", "Film Production", "Photography", "Writing & Journalism",
			"Music Production", "Interior Design",
		},
	},
	{
		Name: "Engineering",
		Careers: []string{
			"Mechanical", "Electrical", "Civil", "Chemical", "Aerospace",
			"Environmental", "Industrial Engineering",
		},
	},
	{
		Name: "Education",
		Careers: []string{
			"Teaching", "Educational Administration", "Curriculum Development",
			"Educational Technology", "School Counseling", "Special Education",
		},
	},
}

// Catalog 返回完整的职业目录
func Catalog() []CareerCategory {
	return careerCatalog
}

// CategoryNames 返回全部大类名称，保持目录顺序
func CategoryNames() []string {
	names := make([]string, 0, len(careerCatalog))
	for _, c := range careerCatalog {
		names = append(names, c.Name)
	}
	return names
}

// CareersFor 返回指定大类下的职业方向，大类不存在时返回nil
func CareersFor(category string) []string {
	for _, c := range careerCatalog {
		if c.Name == category {
			return c.Careers
		}
	}
	return nil
}
