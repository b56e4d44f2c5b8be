package service

// Level is a step of the points ladder shown on the status screen.
type Level struct {
	MinPoints int
	Title     string
	Message   string
	NextGoal  string
	Image     string // file name inside the images directory
}

var levels = []Level{
	{0, "🐱 Малыш-Котик 🌱", "Каждое большое достижение начинается с маленького шага! 🌟", "250 баллов - стань Начинающим!", "1.jpg"},
	{250, "🐱 Начинающий Котик 🐾", "Хорошее начало! Вы уже многого достигли! 🌈", "500 баллов - стань Уверенным!", "2.jpg"},
	{500, "🐱 Уверенный Котик 😊", "Вы на правильном пути! Продолжайте! 🚀", "750 баллов - стань Продвинутым!", "3.jpg"},
	{750, "🐱 Продвинутый Котик 💪", "Отличные результаты! Так держать! 💪", "1000 баллов - стань Супер-Котиком!", "4.jpg"},
	{1000, "🐱 Супер-Котик ⭐", "Невероятно! Вы просто супер! 🌟", "1500 баллов - стань Легендой!", "5.jpg"},
	{1500, "🐱 Котик-Легенда 🏆", "Вы достигли вершины! Ваши достижения вдохновляют! ✨", "Вы достигли максимального уровня!", "6.jpg"},
}

// LevelFor returns the highest level reached with points.
func LevelFor(points int) Level {
	lvl := levels[0]
	for _, l := range levels {
		if points >= l.MinPoints {
			lvl = l
		}
	}
	return lvl
}
