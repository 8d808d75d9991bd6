package symptom

// Topic names a health concern the assistant recognises.
type Topic string

const (
	Headache      Topic = "headache"
	Fever         Topic = "fever"
	Allergy       Topic = "allergy"
	Heartburn     Topic = "heartburn"
	SoreThroat    Topic = "sore_throat"
	Diarrhea      Topic = "diarrhea"
	JointPain     Topic = "joint_pain"
	MusclePain    Topic = "muscle_pain"
	BackPain      Topic = "back_pain"
	ColdCough     Topic = "cold_cough"
	BloodPressure Topic = "blood_pressure"
	Diabetes      Topic = "diabetes"
	FungalSkin    Topic = "fungal_skin_infection"
	BacterialSkin Topic = "bacterial_skin_infection"
	Nausea        Topic = "nausea"
	Constipation  Topic = "constipation"
	Anxiety       Topic = "anxiety"
	Depression    Topic = "depression"
	Insomnia      Topic = "insomnia"
	EyeProblems   Topic = "eye_problems"
	EarProblems   Topic = "ear_problems"
	Greeting      Topic = "greeting"
	Thanks        Topic = "thanks"
	FallbackTopic Topic = "fallback"
)

const (
	WelcomeMessage   = "Hello! I'm Dr. Bot, your virtual health assistant. How can I help you today?"
	FallbackResponse = "I'm not sure I understand. Could you please provide more details about your symptoms? For medical emergencies, please call emergency services immediately."
)

// Rule pairs trigger phrases with a canned response. Phrases are stored
// lower-case.
type Rule struct {
	Topic    Topic
	Triggers []string
	Response string
}

// DefaultRules is the assistant's table. Order matters: the first rule with
// a matching phrase wins, so "headache and fever" is a headache.
func DefaultRules() []Rule {
	return []Rule{
		{
			Topic:    Headache,
			Triggers: []string{"headache", "head pain", "migraine", "head hurts", "head ache", "skull pain"},
			Response: "For headaches, I would recommend paracetamol or ibuprofen. Make sure to stay hydrated and rest. If your headache is severe or persistent, please consult a doctor.",
		},
		{
			Topic:    Fever,
			Triggers: []string{"fever", "temperature", "hot", "burning up", "feverish", "high temp"},
			Response: "For fever, paracetamol can help reduce your temperature. Stay hydrated and rest. If your fever is high (above 39°C/102°F) or lasts more than 3 days, please see a doctor.",
		},
		{
			Topic:    Allergy,
			Triggers: []string{"allergy", "allergic", "rash", "itching", "sneezing", "runny nose", "watery eyes", "hives"},
			Response: "For allergies, antihistamines like cetirizine or loratadine can help. Avoid known allergens and keep your living space clean. If you experience severe symptoms like difficulty breathing, seek emergency care.",
		},
		{
			Topic:    Heartburn,
			Triggers: []string{"heartburn", "acid reflux", "acidity", "indigestion", "stomach burn", "chest burn", "acid stomach", "gastric"},
			Response: "For heartburn or acidity, omeprazole can help reduce stomach acid. Avoid spicy foods, large meals, and eating before bedtime. If symptoms persist, please consult a doctor.",
		},
		{
			Topic:    SoreThroat,
			Triggers: []string{"sore throat", "throat pain", "throat hurts", "scratchy throat", "throat infection", "swollen throat"},
			Response: "For a sore throat, warm salt water gargles can help. Paracetamol can relieve the pain. If it's severe or lasts more than a week, you might need antibiotics - please consult a doctor.",
		},
		{
			Topic:    Diarrhea,
			Triggers: []string{"diarrhea", "loose motion", "loose stools", "upset stomach", "stomach upset", "watery stool"},
			Response: "For diarrhea, loperamide can provide relief. Stay hydrated and consider electrolyte solutions. If it lasts more than 2 days or is accompanied by fever or severe pain, please see a doctor.",
		},
		{
			Topic:    JointPain,
			Triggers: []string{"knee pain", "knee hurts", "joint pain", "arthritis", "knee ache", "knee problem"},
			Response: "For knee pain, ibuprofen or paracetamol can help reduce inflammation and pain. Apply ice for acute injuries or heat for chronic pain. Rest and gentle movement are important. If pain persists or is severe, please consult a doctor.",
		},
		{
			Topic:    MusclePain,
			Triggers: []string{"muscle pain", "body pain", "muscle ache", "muscle cramp", "stiff muscles", "muscle strain"},
			Response: "For muscle pain, ibuprofen or paracetamol can help relieve discomfort. Gentle stretching and rest are also beneficial. If the pain is severe or unexplained, see a doctor.",
		},
		{
			Topic:    BackPain,
			Triggers: []string{"back pain", "backache", "lower back", "spine pain", "back hurts", "back ache"},
			Response: "For back pain, ibuprofen can help reduce inflammation. Apply heat or cold packs, maintain good posture, and do gentle stretching. If pain is severe, radiates to legs, or persists, please see a doctor.",
		},
		{
			Topic:    ColdCough,
			Triggers: []string{"cold", "cough", "flu", "congestion", "blocked nose", "stuffy nose", "phlegm", "mucus"},
			Response: "For cold or cough symptoms, rest and hydration are key. Paracetamol can help with discomfort, and antihistamines may help with a runny nose. If symptoms worsen or last more than a week, please consult a doctor.",
		},
		{
			Topic:    BloodPressure,
			Triggers: []string{"high blood pressure", "hypertension", "bp high", "blood pressure", "high bp", "pressure high"},
			Response: "For high blood pressure, medications like amlodipine or losartan may be prescribed. Lifestyle changes such as reducing salt, exercising, and managing stress are important. Always consult your doctor for proper management.",
		},
		{
			Topic:    Diabetes,
			Triggers: []string{"diabetes", "blood sugar", "sugar high", "diabetic", "glucose", "insulin"},
			Response: "For diabetes, medications like metformin are often prescribed, along with lifestyle changes such as healthy eating, regular exercise, and blood sugar monitoring. Always follow your doctor's guidance.",
		},
		{
			Topic:    FungalSkin,
			Triggers: []string{"skin fungal infection", "ringworm", "athlete's foot", "fungal infection", "skin infection", "itchy skin", "skin rash"},
			Response: "For skin fungal infections, antifungal creams like clotrimazole can help. Keep the affected area clean and dry. If it spreads or doesn't improve, see a doctor.",
		},
		{
			Topic:    BacterialSkin,
			Triggers: []string{"bacterial skin infection", "cellulitis", "skin wound", "cut infection", "pus", "infected cut"},
			Response: "For bacterial skin infections, antibiotics may be necessary. Keep the area clean and avoid scratching. Seek medical care for proper treatment.",
		},
		{
			Topic:    Nausea,
			Triggers: []string{"nausea", "vomiting", "throwing up", "feel sick", "queasy", "stomach sick"},
			Response: "For nausea and vomiting, antiemetic medications like ondansetron can help. Stay hydrated with small sips of clear fluids. If symptoms persist or worsen, see a doctor.",
		},
		{
			Topic:    Constipation,
			Triggers: []string{"constipation", "constipated", "hard stool", "can't pass stool", "bowel movement", "difficulty passing"},
			Response: "For constipation, increase fiber intake, drink more water, and exercise regularly. Laxatives like bisacodyl can provide relief. If constipation persists for more than a few days, consult a doctor.",
		},
		{
			Topic:    Anxiety,
			Triggers: []string{"anxiety", "stress", "panic", "worried", "nervous", "anxious"},
			Response: "For anxiety, relaxation techniques, breathing exercises, and therapy can help. Medications like SSRIs may be prescribed for severe cases. Speak with a mental health professional for guidance.",
		},
		{
			Topic:    Depression,
			Triggers: []string{"depression", "sad", "depressed", "down", "mood low", "feeling low"},
			Response: "For depression, therapy and counseling are very effective. Regular exercise, social support, and sometimes medications can help. Please consider speaking with a mental health professional for proper support.",
		},
		{
			Topic:    Insomnia,
			Triggers: []string{"insomnia", "can't sleep", "sleepless", "sleep problem", "trouble sleeping", "no sleep"},
			Response: "For sleep problems, maintain good sleep hygiene, avoid caffeine late in the day, and create a relaxing bedtime routine. If insomnia persists, consult a doctor as there may be underlying causes.",
		},
		{
			Topic:    EyeProblems,
			Triggers: []string{"eye pain", "eye problem", "red eyes", "eye irritation", "dry eyes", "eye infection"},
			Response: "For eye problems, avoid rubbing your eyes and use preservative-free eye drops for dryness. For infections or persistent pain, see an eye specialist immediately as eye problems can be serious.",
		},
		{
			Topic:    EarProblems,
			Triggers: []string{"ear pain", "earache", "ear infection", "ear problem", "hearing problem", "ear hurts"},
			Response: "For ear pain, warm compresses can provide relief. Avoid inserting anything into your ear. If you have severe pain, discharge, or hearing loss, see a doctor promptly.",
		},
		{
			Topic:    Greeting,
			Triggers: []string{"hello", "hi", "hey"},
			Response: WelcomeMessage,
		},
		{
			Topic:    Thanks,
			Triggers: []string{"thank"},
			Response: "You're welcome! Is there anything else I can help you with?",
		},
	}
}
