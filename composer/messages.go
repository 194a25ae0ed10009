package composer

const defaultPortfolio = "nofeelance.com"

// Openers is the generic opener pool.
var Openers = []string{
	"Hey, your post caught my eye because I've got some relevant experience. Want to see if we're on the same page?",
	"I've got some thoughts on how I might help. Care to discuss for a minute?",
	"Hello! I noticed your post and I'm excited about the role. Can you share more details?",
	"Hey! I believe I can bring something unique to your project. Can we chat about the specifics?",
	"Hey just read your post. Do you mind if I ask a few questions?",
}

const (
	logoDesignMessage = "Hi! Logo design is something I do a lot of. I can put together a few concepts " +
		"that fit your brand quickly. Want to see some samples?"
	videoEditingMessage = "Hey! I edit videos regularly, from short social clips to longer cuts with " +
		"color and sound cleanup. Happy to share recent work if you're interested."
	combinedDesignMessage = "Hi! I handle both logo design and video editing, so I can keep your visuals " +
		"consistent across the brand and the footage. Want to see a few examples of each?"
	developerMessageFormat = "Hey! I'm a developer and this is right in my wheelhouse. I've built similar " +
		"projects before, you can check out my work at %s. Happy to chat about the details!"
)
