package guidance

// GuideDoc 一篇内置的职业指南文档
type GuideDoc struct {
	ID      string
	Title   string
	Content string
}

// seedCorpus 内置参考语料。向量库为空时在启动阶段灌入，
// 为分析提供与目录大类对应的基础背景知识。
var seedCorpus = []GuideDoc{
	{
		ID:    "guide-technology",
		Title: "Technology Careers Guide",
		Content: `Technology careers center on building, operating, and securing software systems. Software engineers design and implement applications using languages such as Go, Python, Java, and TypeScript, working in teams that practice code review, automated testing, and continuous delivery. Data scientists combine statistics, programming, and domain knowledge to extract insight from data, while AI/ML engineers productionize models and maintain training pipelines.

Demand for technology professionals remains strong across industries, since nearly every company now depends on software. Entry paths include computer science degrees, intensive bootcamps, and self-directed learning backed by a public portfolio. Employers consistently weigh demonstrated ability, such as open source contributions and shipped projects, alongside formal credentials.

Cybersecurity specialists protect systems and data through threat modeling, penetration testing, and incident response. The field rewards certifications such as Security+, CISSP, and OSCP, and offers defensive, offensive, and governance tracks. DevOps and cloud architecture roles focus on infrastructure as code, observability, and cost-efficient use of platforms like AWS, Azure, and GCP; Kubernetes and Terraform experience is widely requested.

Compensation in technology is among the highest of any industry, with significant geographic variation and meaningful equity components at larger firms. Remote and hybrid arrangements are common. Career progression typically branches into a deep technical track (staff and principal engineer) or a management track (engineering manager and director), and switching between the two is accepted practice.`,
	},
	{
		ID:    "guide-healthcare",
		Title: "Healthcare Careers Guide",
		Content: `Healthcare careers span direct patient care, research, and the administration of care delivery systems. Physicians and nurses form the clinical core: medicine requires a long training pipeline of medical school, residency, and often fellowship, while nursing offers faster entry through BSN programs and strong demand across hospitals, clinics, and home care.

Allied and adjacent roles broaden the field considerably. Pharmacists manage medication therapy and safety, physical therapists restore mobility after injury, and clinical psychologists provide mental health care. Biomedical engineers design medical devices and diagnostic equipment, sitting at the intersection of engineering and medicine.

Healthcare administration and healthcare IT are growing rapidly as systems digitize. Administrators manage budgets, compliance, and operations for hospitals and networks; health informatics specialists implement and secure electronic health record systems. Both paths value a mix of clinical literacy and management or technical skill.

The sector offers exceptional job security since demand is driven by demographics rather than economic cycles. Work-life balance varies sharply by role: shift work and on-call duty are common in clinical settings, while administrative and IT roles follow standard business hours. Licensure and continuing education requirements are a permanent feature of most clinical careers.`,
	},
	{
		ID:    "guide-business",
		Title: "Business Careers Guide",
		Content: `Business careers cover the functions that keep organizations running and growing: finance, marketing, operations, sales, human resources, and general management. Finance professionals analyze investments, manage budgets, and advise on capital decisions, with paths running through corporate finance, investment banking, and asset management. The CFA and CPA credentials carry significant weight.

Marketing has shifted decisively toward digital channels and measurable outcomes. Modern marketers combine brand strategy with analytics, search optimization, paid media, and marketing automation. Business analysts and project managers translate between stakeholders and delivery teams; certifications such as PMP, CBAP, and agile credentials are commonly requested.

Consulting and entrepreneurship attract people who want breadth and autonomy. Consultants rotate across industries solving strategy and operations problems, building a strong general toolkit quickly but often traveling heavily. Entrepreneurs trade stability for upside and learn every function at once, from product to payroll.

Progression in business careers rewards a track record of delivered results, strong communication, and the ability to lead teams. MBA programs remain a common accelerator for moves into senior management, though demonstrated operating experience increasingly substitutes for formal credentials in many industries.`,
	},
	{
		ID:    "guide-creative",
		Title: "Creative Careers Guide",
		Content: `Creative careers turn craft and taste into commercial or cultural value. Graphic designers and UX/UI designers shape how products look and behave; the field expects fluency with tools such as Figma and the Adobe suite, a strong portfolio, and the ability to defend design decisions with user research and data. UX roles in particular blend psychology, prototyping, and close collaboration with engineers.

Content creation and digital marketing reward consistency and audience understanding. Writers, video producers, and social media specialists build distribution skills alongside craft, and the most successful treat analytics as part of the creative process. Animation and film production remain team sports organized around project pipelines, with roles from storyboarding to post-production.

Photography, music production, and interior design mix freelance and studio employment. Income in these fields is often portfolio-driven and lumpy, so successful practitioners develop business skills: pricing, contracts, client management, and personal branding.

Formal degrees matter less in creative fields than in most others; the portfolio is the credential. Competitive niches reward specialization, and many creatives build hybrid careers that pair a craft with an adjacent skill such as front-end development, marketing strategy, or project management.`,
	},
	{
		ID:    "guide-engineering",
		Title: "Engineering Careers Guide",
		Content: `Traditional engineering disciplines apply physics, chemistry, and mathematics to the built and manufactured world. Mechanical engineers design machines, vehicles, and thermal systems; electrical engineers work on power systems, electronics, and embedded devices; civil engineers deliver infrastructure from bridges to water systems. Chemical engineers scale laboratory processes to industrial production.

Licensure distinguishes engineering from many technical fields: the FE exam after an accredited degree, followed by the PE license, is required for work that carries public safety responsibility, especially in civil and structural practice. Aerospace and environmental engineering add their own regulatory regimes.

Industrial engineering focuses on optimizing processes, supply chains, and production systems, and frequently leads into operations management. Across disciplines, employers increasingly expect software literacy: simulation tools, CAD, data analysis, and in many roles the ability to script in Python or MATLAB.

Engineering careers offer stable demand, structured progression, and strong mid-career salaries. Progression paths include technical specialization, project and program management, and movement into adjacent fields such as technical sales or product management. Infrastructure investment and the energy transition are currently expanding demand for civil, electrical, and environmental engineers.`,
	},
	{
		ID:    "guide-education",
		Title: "Education Careers Guide",
		Content: `Education careers include classroom teaching, administration, curriculum design, and the growing educational technology sector. Teachers need subject mastery, classroom management skill, and state licensure for public school roles; alternative certification routes exist for career changers. Special education is persistently understaffed and offers strong job security alongside additional certification requirements.

Beyond the classroom, curriculum developers design instructional materials and assessments, school counselors support student wellbeing and progression, and administrators run schools and districts. Movement into administration usually requires teaching experience plus a graduate credential in educational leadership.

Educational technology blends pedagogy with product work: instructional designers build online courses and corporate training, and edtech companies hire former educators into product, content, and customer success roles. This path often offers higher compensation than classroom teaching while still drawing directly on teaching skill.

Compensation in education trails the private sector but comes with strong benefits, pension systems, and schedule advantages. The work is mission-driven, and burnout management matters: sustainable practitioners set boundaries around grading and administrative load, and experienced teachers often diversify into tutoring, writing, or curriculum consulting.`,
	},
}

// SeedCorpus 返回内置语料文档
func SeedCorpus() []GuideDoc {
	return seedCorpus
}
