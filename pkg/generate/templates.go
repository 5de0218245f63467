package generate

import (
	"fmt"
	"strings"
)

type template struct {
	key  string
	text string
}

// templates are checked in order; the first key that overlaps the topic wins.
var templates = []template{
	{"investing", "投资是一种重要的理财方式。通过购买股票、债券和基金，人们可以增加自己的财富。但是投资也有风险，需要仔细研究市场趋势。成功的投资者通常会分散投资，降低风险。长期投资比短期投机更安全，也更容易获得稳定的回报。"},
	{"golf", "高尔夫是一项优雅的运动。球员需要用球杆将小球打入洞中，用最少的杆数完成比赛。这项运动需要精确性、耐心和技巧。许多商业人士喜欢在高尔夫球场上进行商务谈判。高尔夫不仅锻炼身体，还能培养专注力和自律性。"},
	{"bill gates", "比尔·盖茨是微软公司的创始人，也是世界上最富有的人之一。他通过开发计算机软件改变了整个世界。后来他成立了比尔和梅琳达基金会，致力于全球健康和教育事业。盖茨相信技术可以解决世界上的许多问题，并且一直在推动创新和慈善事业。"},
	{"technology", "科技发展非常迅速，特别是人工智能和机器学习领域。现代科技改变了我们的生活方式，从智能手机到电动汽车，再到在线购物。互联网连接了全世界的人们，使信息传播变得更加容易。未来的科技可能会带来更多令人惊喜的变化。"},
	{"food", "中国菜有着悠久的历史和丰富的文化。不同地区有不同的烹饪风格，比如川菜、粤菜、鲁菜等。中国人重视食物的营养搭配，讲究色香味俱全。现在很多外国人也喜欢吃中国菜，中华美食文化正在世界各地传播。烹饪不仅是一门艺术，也是一种文化传承。"},
	{"travel", "旅行可以开阔视野，了解不同的文化和风土人情。现代交通工具使得国际旅行变得更加便利。许多人喜欢在假期时到其他国家旅游，体验不同的生活方式。旅行不仅能放松心情，还能学到很多新知识。拍照和写旅行日记是记录美好回忆的好方法。"},
}

const genericTemplate = "关于%[1]s这个话题，有很多值得讨论的地方。在现代社会中，%[1]s扮演着重要的角色。人们对%[1]s有不同的看法和经验。通过学习和了解%[1]s，我们可以获得新的知识和技能。这个主题很有趣，值得我们深入研究和思考。每个人都可以从%[1]s中学到有用的东西。"

// QuickTopics are suggested topics offered to users.
var QuickTopics = []string{
	"Investing", "Technology", "Travel", "Food", "Sports", "Music",
	"Business", "Education", "Health", "Environment", "Art", "Science",
}

// Template returns the built-in passage for topic. A topic matching none of
// the prepared passages gets a generic paragraph that names it.
func Template(topic string) string {
	topic = strings.TrimSpace(topic)
	lower := strings.ToLower(topic)
	if lower != "" {
		for _, t := range templates {
			if strings.Contains(lower, t.key) || strings.Contains(t.key, lower) {
				return t.text
			}
		}
	}
	return fmt.Sprintf(genericTemplate, topic)
}
